package worker

// tablero_refresher.go
// Background goroutine that reloads the locker board every interval and
// pushes it to live subscribers. Skips ticks while the external API's circuit
// breaker is open.

import (
	"context"
	"time"

	"zerostress/internal/dto"
	"zerostress/internal/infra"

	"github.com/rs/zerolog/log"
)

// TableroSource reloads the board bypassing the cache.
type TableroSource interface {
	RefrescarTablero(ctx context.Context) (*dto.TableroResponse, error)
}

// TableroPublisher fans a board snapshot out to subscribers.
type TableroPublisher interface {
	Broadcast(t *dto.TableroResponse)
}

// TableroRefresherConfig holds all dependencies for the refresh goroutine.
// CB is nil when keys are stored locally.
type TableroRefresherConfig struct {
	Llaves    TableroSource
	Publisher TableroPublisher
	CB        *infra.CircuitBreaker
	Interval  time.Duration
}

// StartTableroRefresher ticks every cfg.Interval until ctx is cancelled.
func StartTableroRefresher(ctx context.Context, cfg TableroRefresherConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		log.Info().Dur("interval", cfg.Interval).Msg("tablero_refresher: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("tablero_refresher: shutting down")
				return
			case <-ticker.C:
				refreshTablero(ctx, cfg)
			}
		}
	}()
}

func refreshTablero(ctx context.Context, cfg TableroRefresherConfig) {
	if cfg.CB != nil && cfg.CB.State() == infra.CBOpen {
		log.Debug().Msg("tablero_refresher: circuit breaker is open, skipping tick")
		return
	}
	t, err := cfg.Llaves.RefrescarTablero(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("tablero_refresher: refresh failed")
		return
	}
	if cfg.Publisher != nil {
		cfg.Publisher.Broadcast(t)
	}
}
