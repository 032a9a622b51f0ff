package realtime

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorSweepEvictsSilentConnections(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())
	var detached []Connection
	m := NewMonitor(registry, func(c Connection) {
		registry.Unregister(c)
		detached = append(detached, c)
	}, 30*time.Second, 2, zerolog.Nop())

	fresh := newFakeConn("r1")
	stale := newFakeConn("r1")
	require.NoError(t, registry.Register(fresh))
	require.NoError(t, registry.Register(stale))

	now := time.Now()
	fresh.setLastSeen(now.Add(-10 * time.Second))
	stale.setLastSeen(now.Add(-90 * time.Second)) // past the 60s window
	m.now = func() time.Time { return now }

	m.Sweep()

	assert.Len(t, detached, 1)
	assert.True(t, stale.isClosed())
	assert.False(t, fresh.isClosed())
	assert.Equal(t, 1, registry.Count("r1"))
}

func TestMonitorSweepBoundary(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())
	m := NewMonitor(registry, func(c Connection) { registry.Unregister(c) },
		30*time.Second, 2, zerolog.Nop())

	now := time.Now()
	m.now = func() time.Time { return now }

	onEdge := newFakeConn("r1")
	require.NoError(t, registry.Register(onEdge))
	onEdge.setLastSeen(now.Add(-60 * time.Second))

	// Exactly at the window counts as silent.
	m.Sweep()
	assert.True(t, onEdge.isClosed())
}
