package handler

import (
	"net/http"
	"sync"
	"time"

	"zerostress/internal/dto"
	"zerostress/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 50 * time.Second
	wsSendBuffer = 4
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsClient struct {
	conn *websocket.Conn
	send chan *dto.TableroResponse
}

// TableroHub fans locker board snapshots out to websocket subscribers.
// A subscriber whose buffer is full is dropped.
type TableroHub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

func NewTableroHub() *TableroHub {
	return &TableroHub{clients: make(map[*wsClient]struct{})}
}

// Broadcast never blocks on slow subscribers.
func (h *TableroHub) Broadcast(t *dto.TableroResponse) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		select {
		case cl.send <- t:
		default:
			delete(h.clients, cl)
			close(cl.send)
		}
	}
}

// Subscribers returns the number of connected clients.
func (h *TableroHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *TableroHub) add(cl *wsClient) {
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
}

func (h *TableroHub) remove(cl *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		close(cl.send)
	}
	h.mu.Unlock()
}

// Stream godoc
// @Summary Stream del tablero de casilleros por websocket
// @Tags llaves
// @Router /v1/llaves/ws [get]
func (h *TableroHub) Stream(llaves service.LlaveService) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn().Err(err).Msg("tablero_ws: upgrade failed")
			return
		}
		cl := &wsClient{conn: conn, send: make(chan *dto.TableroResponse, wsSendBuffer)}

		if t, err := llaves.Tablero(c.Request.Context()); err == nil {
			cl.send <- t
		}
		h.add(cl)
		log.Debug().Int("subscribers", h.Subscribers()).Msg("tablero_ws: client connected")

		go h.writeLoop(cl)
		h.readLoop(cl)
	}
}

// readLoop only drains control frames; it returns when the peer goes away.
func (h *TableroHub) readLoop(cl *wsClient) {
	defer func() {
		h.remove(cl)
		cl.conn.Close()
	}()
	cl.conn.SetReadLimit(512)
	_ = cl.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *TableroHub) writeLoop(cl *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()
	for {
		select {
		case t, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteJSON(t); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
