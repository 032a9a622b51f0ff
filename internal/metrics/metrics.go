// Package metrics exposes the Prometheus instrumentation for the
// synchronization core.  Broadcast failures are deliberately a metric and a
// log line, never an API error: a mutation whose transaction committed must
// not fail because the bus was unreachable.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsPublished counts wire events handed to the bus, by event type.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "floorsync_events_published_total",
		Help: "Wire events handed to the bus, by event type.",
	}, []string{"type"})

	// BroadcastFailures counts publish attempts dropped after retries.
	BroadcastFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "floorsync_broadcast_failures_total",
		Help: "Publish attempts dropped after bounded retries.",
	})

	// ActiveConnections tracks currently registered client connections.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "floorsync_active_connections",
		Help: "Currently registered client connections.",
	})

	// ConnectionsEvicted counts connections closed by the heartbeat monitor
	// or dropped for backpressure.
	ConnectionsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "floorsync_connections_evicted_total",
		Help: "Connections evicted for silence or backpressure.",
	})

	// DroppedSends counts events not delivered to a connection because its
	// send queue was full.
	DroppedSends = promauto.NewCounter(prometheus.CounterOpts{
		Name: "floorsync_dropped_sends_total",
		Help: "Events dropped because a connection's send queue was full.",
	})

	// MutationRetries counts transaction retries after transient storage
	// failures (deadlock, lock wait timeout).
	MutationRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "floorsync_mutation_retries_total",
		Help: "Seating transactions retried after transient storage failures.",
	})
)
