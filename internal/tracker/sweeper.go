package tracker

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stationhub/cartrack/internal/metrics"
)

// Sweeper periodically evicts cars that have gone silent. It is the only
// mechanism that reclaims cars which stop updating without an explicit
// disconnect or removal.
type Sweeper struct {
	registry   *Registry
	bc         Broadcaster
	interval   time.Duration
	staleAfter time.Duration
	clock      clockwork.Clock
	stopCh     chan struct{}
}

func NewSweeper(registry *Registry, bc Broadcaster, interval, staleAfter time.Duration, clock clockwork.Clock) *Sweeper {
	return &Sweeper{
		registry:   registry,
		bc:         bc,
		interval:   interval,
		staleAfter: staleAfter,
		clock:      clock,
		stopCh:     make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called or ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			s.sweep()
		case <-s.stopCh:
			slog.Info("Staleness sweeper stopped")
			return
		case <-ctx.Done():
			slog.Info("Staleness sweeper context cancelled")
			return
		}
	}
}

// Stop gracefully stops the sweep loop.
func (s *Sweeper) Stop() {
	close(s.stopCh)
}

func (s *Sweeper) sweep() {
	evicted := s.registry.EvictStale(s.staleAfter)
	for _, uuid := range evicted {
		metrics.SweeperEvictionsTotal.Inc()

		// No exclusion: the silent car, if still connected, also learns
		// it was dropped.
		s.bc.Broadcast(EventCarRemoved, Envelope{
			Status: "1",
			Payload: map[string]any{
				"uuid": uuid,
			},
		}, "")

		slog.Info("Removed inactive car", "car_uuid", uuid, "stale_after", s.staleAfter)
	}
}
