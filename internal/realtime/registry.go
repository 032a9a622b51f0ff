package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/floorsync/floorsync/internal/metrics"
)

// ErrEmptyRestaurant rejects registration of a connection with no
// restaurant scope.
var ErrEmptyRestaurant = errors.New("registry: empty restaurant id")

// Connection is an open channel to one dashboard client.
type Connection interface {
	// RestaurantID is the tenant the connection is scoped to.
	RestaurantID() string
	// Send enqueues payload for delivery without blocking.  It returns
	// false when the send queue is full or the connection is closed; the
	// caller decides whether that means eviction.
	Send(payload []byte) bool
	// LastSeen is the wall-clock time of the last liveness signal.
	LastSeen() time.Time
	// Close tears the connection down.  Idempotent.
	Close()
}

// Registry is the per-process index of live client connections keyed by
// restaurant.  It is constructed explicitly and owned by the server
// process's lifecycle (created at startup, drained at shutdown) rather
// than living in package-global state.
//
// Broadcast iteration takes only read locks and a per-restaurant lock, so
// fan-out for one restaurant never contends with fan-out for another.
// Registration and removal take the outer write lock; they are cheap and
// rare next to deliveries.
type Registry struct {
	logger zerolog.Logger

	mu      sync.RWMutex
	tenants map[string]*tenantSet
}

type tenantSet struct {
	mu    sync.RWMutex
	conns map[Connection]struct{}
}

// NewRegistry returns an empty Registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{logger: logger, tenants: make(map[string]*tenantSet)}
}

// Register adds c under its restaurant id.
func (r *Registry) Register(c Connection) error {
	id := c.RestaurantID()
	if id == "" {
		return ErrEmptyRestaurant
	}
	r.mu.Lock()
	ts, ok := r.tenants[id]
	if !ok {
		ts = &tenantSet{conns: make(map[Connection]struct{})}
		r.tenants[id] = ts
	}
	ts.mu.Lock()
	ts.conns[c] = struct{}{}
	ts.mu.Unlock()
	r.mu.Unlock()
	metrics.ActiveConnections.Inc()
	r.logger.Debug().Str("restaurant_id", id).Msg("connection registered")
	return nil
}

// Unregister removes c and reports whether it was present.  Sockets close
// from either side at unpredictable times, so cleanup code double-fires;
// removing an already-removed connection is a no-op, not an error.
func (r *Registry) Unregister(c Connection) bool {
	id := c.RestaurantID()
	r.mu.Lock()
	ts, ok := r.tenants[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	ts.mu.Lock()
	_, present := ts.conns[c]
	delete(ts.conns, c)
	empty := len(ts.conns) == 0
	ts.mu.Unlock()
	if empty {
		delete(r.tenants, id)
	}
	r.mu.Unlock()
	if present {
		metrics.ActiveConnections.Dec()
		r.logger.Debug().Str("restaurant_id", id).Msg("connection removed")
	}
	return present
}

// ForEach invokes fn for every connection currently registered for the
// restaurant.  It iterates over a snapshot, so fn sees each connection at
// most once and concurrent removal never breaks the iteration.  fn runs
// without any registry lock held.
func (r *Registry) ForEach(restaurantID string, fn func(Connection)) {
	for _, c := range r.snapshotTenant(restaurantID) {
		fn(c)
	}
}

// Count returns the number of live connections for the restaurant.
func (r *Registry) Count(restaurantID string) int {
	r.mu.RLock()
	ts, ok := r.tenants[restaurantID]
	r.mu.RUnlock()
	if !ok {
		return 0
	}
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return len(ts.conns)
}

// Snapshot returns every registered connection across all restaurants.
// Used by the heartbeat monitor's sweep and by shutdown draining.
func (r *Registry) Snapshot() []Connection {
	r.mu.RLock()
	sets := make([]*tenantSet, 0, len(r.tenants))
	for _, ts := range r.tenants {
		sets = append(sets, ts)
	}
	r.mu.RUnlock()

	var out []Connection
	for _, ts := range sets {
		ts.mu.RLock()
		for c := range ts.conns {
			out = append(out, c)
		}
		ts.mu.RUnlock()
	}
	return out
}

func (r *Registry) snapshotTenant(restaurantID string) []Connection {
	r.mu.RLock()
	ts, ok := r.tenants[restaurantID]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	ts.mu.RLock()
	out := make([]Connection, 0, len(ts.conns))
	for c := range ts.conns {
		out = append(out, c)
	}
	ts.mu.RUnlock()
	return out
}

// Drain unregisters and closes every connection.  Called on shutdown.
func (r *Registry) Drain() {
	conns := r.Snapshot()
	if len(conns) > 0 {
		r.logger.Info().Int("connections", len(conns)).Msg("draining registry")
	}
	for _, c := range conns {
		r.Unregister(c)
		c.Close()
	}
}
