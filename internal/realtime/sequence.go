package realtime

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Sequencer mints per-restaurant monotonically increasing sequence numbers
// for outbound events.  Ordering matters only within one restaurant; there
// is deliberately no global counter across restaurants.
type Sequencer interface {
	Next(ctx context.Context, restaurantID string) int64
}

// LocalSequencer is the single-process Sequencer.
type LocalSequencer struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewLocalSequencer returns a LocalSequencer with all counters at zero.
func NewLocalSequencer() *LocalSequencer {
	return &LocalSequencer{counters: make(map[string]int64)}
}

// Next returns the next sequence number for the restaurant.
func (s *LocalSequencer) Next(_ context.Context, restaurantID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[restaurantID]++
	return s.counters[restaurantID]
}

const seqKeyPrefix = "floorsync:seq:"

// RedisSequencer draws sequence numbers from a per-restaurant Redis counter
// so every process sharing the bus mints from the same series.  When Redis
// is unreachable it falls back to a process-local counter: ordering
// degrades to per-process but delivery continues.
type RedisSequencer struct {
	client   *redis.Client
	fallback *LocalSequencer
	logger   zerolog.Logger
}

// NewRedisSequencer returns a Sequencer backed by the given Redis client.
func NewRedisSequencer(client *redis.Client, logger zerolog.Logger) *RedisSequencer {
	return &RedisSequencer{client: client, fallback: NewLocalSequencer(), logger: logger}
}

// Next returns the next sequence number for the restaurant.
func (s *RedisSequencer) Next(ctx context.Context, restaurantID string) int64 {
	v, err := s.client.Incr(ctx, seqKeyPrefix+restaurantID).Result()
	if err != nil {
		s.logger.Warn().Err(err).Str("restaurant_id", restaurantID).
			Msg("sequence INCR failed, using local counter")
		return s.fallback.Next(ctx, restaurantID)
	}
	return v
}
