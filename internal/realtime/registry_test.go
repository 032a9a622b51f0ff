package realtime

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn is a Connection with a recording queue and a configurable
// capacity, standing in for a websocket client.
type fakeConn struct {
	restaurantID string
	capacity     int

	mu       sync.Mutex
	payloads [][]byte
	closed   bool
	lastSeen time.Time
}

func newFakeConn(restaurantID string) *fakeConn {
	return &fakeConn{restaurantID: restaurantID, capacity: 64, lastSeen: time.Now()}
}

func (f *fakeConn) RestaurantID() string { return f.restaurantID }

func (f *fakeConn) Send(payload []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || len(f.payloads) >= f.capacity {
		return false
	}
	f.payloads = append(f.payloads, payload)
	return true
}

func (f *fakeConn) LastSeen() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSeen
}

func (f *fakeConn) setLastSeen(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSeen = t
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) received() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.payloads...)
}

func TestRegistryRegisterUnregister(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	c := newFakeConn("r1")

	require.NoError(t, r.Register(c))
	assert.Equal(t, 1, r.Count("r1"))

	assert.True(t, r.Unregister(c))
	assert.Equal(t, 0, r.Count("r1"))

	// Second removal is a no-op.
	assert.False(t, r.Unregister(c))
}

func TestRegistryRejectsEmptyRestaurant(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	err := r.Register(newFakeConn(""))
	assert.ErrorIs(t, err, ErrEmptyRestaurant)
}

func TestRegistryForEachIsTenantScoped(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	a1, a2 := newFakeConn("a"), newFakeConn("a")
	b1 := newFakeConn("b")
	require.NoError(t, r.Register(a1))
	require.NoError(t, r.Register(a2))
	require.NoError(t, r.Register(b1))

	var visited int
	r.ForEach("a", func(Connection) { visited++ })
	assert.Equal(t, 2, visited)

	visited = 0
	r.ForEach("missing", func(Connection) { visited++ })
	assert.Equal(t, 0, visited)
}

func TestRegistryForEachToleratesRemovalDuringIteration(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	conns := []*fakeConn{newFakeConn("a"), newFakeConn("a"), newFakeConn("a")}
	for _, c := range conns {
		require.NoError(t, r.Register(c))
	}

	var visited int
	r.ForEach("a", func(c Connection) {
		visited++
		r.Unregister(c)
	})
	assert.Equal(t, 3, visited)
	assert.Equal(t, 0, r.Count("a"))
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry(zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c := newFakeConn("a")
			require.NoError(t, r.Register(c))
			r.ForEach("a", func(conn Connection) { conn.Send([]byte("x")) })
			r.Unregister(c)
			r.Unregister(c)
		}()
		go func() {
			defer wg.Done()
			r.ForEach("a", func(Connection) {})
			_ = r.Count("a")
			_ = r.Snapshot()
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, r.Count("a"))
}

func TestRegistryDrain(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	a, b := newFakeConn("a"), newFakeConn("b")
	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(b))

	r.Drain()
	assert.Equal(t, 0, r.Count("a"))
	assert.Equal(t, 0, r.Count("b"))
	assert.True(t, a.isClosed())
	assert.True(t, b.isClosed())
}
