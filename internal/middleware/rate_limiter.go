package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"zerostress/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const purgeInterval = 5 * time.Minute

// ipLimiter counts requests per client IP in fixed windows.
type ipLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*ipWindow
}

type ipWindow struct {
	count int
	ends  time.Time
}

func newIPLimiter(limit int, window time.Duration) *ipLimiter {
	return &ipLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		windows: make(map[string]*ipWindow),
	}
}

// RateLimiter rejects with 429 once an IP goes over limit requests within
// window. Retry-After carries the seconds left in the current window.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	l := newIPLimiter(limit, window)
	go l.purgeEvery(purgeInterval)
	return l.handle
}

func (l *ipLimiter) handle(c *gin.Context) {
	ok, wait := l.allow(c.ClientIP())
	if !ok {
		secs := int(math.Ceil(wait.Seconds()))
		if secs < 1 {
			secs = 1
		}
		c.Header("Retry-After", strconv.Itoa(secs))
		c.AbortWithStatusJSON(http.StatusTooManyRequests,
			apierror.New("Demasiadas solicitudes. Intente nuevamente en un momento."))
		return
	}
	c.Next()
}

// allow records one hit for ip. When the IP is over its limit it returns
// false and how long until its window resets.
func (l *ipLimiter) allow(ip string) (bool, time.Duration) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[ip]
	if !ok || !now.Before(w.ends) {
		w = &ipWindow{ends: now.Add(l.window)}
		l.windows[ip] = w
	}
	w.count++
	if w.count > l.limit {
		return false, w.ends.Sub(now)
	}
	return true, 0
}

// purge drops windows that already ended and returns how many went.
func (l *ipLimiter) purge() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for ip, w := range l.windows {
		if !now.Before(w.ends) {
			delete(l.windows, ip)
			n++
		}
	}
	return n
}

func (l *ipLimiter) purgeEvery(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for range ticker.C {
		if n := l.purge(); n > 0 {
			log.Debug().Int("entries_purged", n).Msg("rate limiter windows purged")
		}
	}
}
