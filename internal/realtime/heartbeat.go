package realtime

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/floorsync/floorsync/internal/metrics"
)

// Monitor periodically sweeps the registry and evicts connections that have
// been silent past the eviction window.  The window is a multiple of the
// sweep interval, so a client surviving must produce some traffic (a ping,
// or anything else) at least once per interval with slack for jitter.
type Monitor struct {
	registry *Registry
	detach   func(Connection)
	interval time.Duration
	window   time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewMonitor builds a Monitor sweeping every interval and evicting
// connections silent for longer than interval*multiplier.
func NewMonitor(registry *Registry, detach func(Connection), interval time.Duration, multiplier int, logger zerolog.Logger) *Monitor {
	return &Monitor{
		registry: registry,
		detach:   detach,
		interval: interval,
		window:   interval * time.Duration(multiplier),
		logger:   logger,
		now:      time.Now,
	}
}

// Start runs the sweep loop until ctx is done.
func (m *Monitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

// Sweep evicts every connection whose last liveness signal is older than
// the eviction window.
func (m *Monitor) Sweep() {
	cutoff := m.now().Add(-m.window)
	for _, c := range m.registry.Snapshot() {
		if c.LastSeen().After(cutoff) {
			continue
		}
		m.logger.Info().
			Str("restaurant_id", c.RestaurantID()).
			Time("last_seen", c.LastSeen()).
			Msg("evicting silent connection")
		metrics.ConnectionsEvicted.Inc()
		m.detach(c)
		c.Close()
	}
}
