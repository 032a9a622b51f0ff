package bus

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisBus(t *testing.T) *RedisBus {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisBus(client, zerolog.Nop())
}

func TestRedisBusDelivers(t *testing.T) {
	b := newRedisBus(t)
	defer b.Close()

	var rec recorder
	sub, err := b.Subscribe("floorsync:events:r1", rec.handler)
	require.NoError(t, err)
	defer sub.Close()

	// The SUBSCRIBE command races the first PUBLISH; wait for it to land.
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, b.Publish(context.Background(), "floorsync:events:r1", []byte("hello")))

	require.Eventually(t, func() bool {
		return len(rec.got()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "hello", rec.got()[0])
}

func TestRedisBusSharedTopicFanIn(t *testing.T) {
	b := newRedisBus(t)
	defer b.Close()

	var recA, recB recorder
	subA, err := b.Subscribe("floorsync:events:r1", recA.handler)
	require.NoError(t, err)
	defer subA.Close()
	subB, err := b.Subscribe("floorsync:events:r1", recB.handler)
	require.NoError(t, err)
	defer subB.Close()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, b.Publish(context.Background(), "floorsync:events:r1", []byte("both")))

	require.Eventually(t, func() bool {
		return len(recA.got()) == 1 && len(recB.got()) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRedisBusSubscriptionClose(t *testing.T) {
	b := newRedisBus(t)
	defer b.Close()

	var rec recorder
	sub, err := b.Subscribe("floorsync:events:r1", rec.handler)
	require.NoError(t, err)
	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close()) // idempotent

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, b.Publish(context.Background(), "floorsync:events:r1", []byte("dropped")))
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, rec.got())
}

func TestRedisBusSubscribeAfterClose(t *testing.T) {
	b := newRedisBus(t)
	require.NoError(t, b.Close())
	_, err := b.Subscribe("floorsync:events:r1", func(string, []byte) {})
	assert.ErrorIs(t, err, ErrClosed)
}
