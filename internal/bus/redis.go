package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	publishMaxAttempts = 3
	publishRetryBase   = 100 * time.Millisecond
)

// RedisBus implements Bus on Redis Pub/Sub.  One PubSub connection is held
// per topic with local handler fan-in, so many client connections for the
// same restaurant share a single upstream subscription.
//
// go-redis re-issues SUBSCRIBE automatically after a dropped connection, so
// a process that loses the bus during an outage resumes delivery for every
// topic it still holds without restart or bookkeeping here.  Messages
// published during the outage are not replayed; clients recover those
// through a delta sync, which is why delivery is at-least-once end to end
// only in combination with the reconciler.
type RedisBus struct {
	client *redis.Client
	logger zerolog.Logger

	mu     sync.Mutex
	topics map[string]*redisTopic
	closed bool
}

// NewRedisBus returns a Bus backed by the given Redis client.
func NewRedisBus(client *redis.Client, logger zerolog.Logger) *RedisBus {
	return &RedisBus{
		client: client,
		logger: logger,
		topics: make(map[string]*redisTopic),
	}
}

// Publish sends payload on topic, retrying transient failures with bounded
// backoff.  After the final attempt the error is returned for the caller to
// log and meter; publishing is best-effort and must never block a caller
// whose storage transaction already committed.
func (b *RedisBus) Publish(ctx context.Context, topic string, payload []byte) error {
	var err error
	for attempt := 1; attempt <= publishMaxAttempts; attempt++ {
		err = b.client.Publish(ctx, topic, payload).Err()
		if err == nil {
			return nil
		}
		if attempt == publishMaxAttempts {
			break
		}
		b.logger.Warn().
			Str("topic", topic).
			Int("attempt", attempt).
			Err(err).
			Msg("bus publish failed, retrying")
		select {
		case <-time.After(publishRetryBase * time.Duration(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("publish topic %q: %w", topic, err)
}

// Subscribe registers h for topic, establishing the upstream subscription
// on first use.
func (b *RedisBus) Subscribe(topic string, h Handler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	t, ok := b.topics[topic]
	if !ok {
		t = &redisTopic{
			pubsub:   b.client.Subscribe(context.Background(), topic),
			handlers: make(map[*redisSubscription]Handler),
		}
		b.topics[topic] = t
		go b.receive(topic, t)
	}
	sub := &redisSubscription{b: b, topic: topic}
	t.mu.Lock()
	t.handlers[sub] = h
	t.mu.Unlock()
	return sub, nil
}

func (b *RedisBus) receive(topic string, t *redisTopic) {
	for msg := range t.pubsub.Channel() {
		t.mu.RLock()
		handlers := make([]Handler, 0, len(t.handlers))
		for _, h := range t.handlers {
			handlers = append(handlers, h)
		}
		t.mu.RUnlock()
		for _, h := range handlers {
			h(topic, []byte(msg.Payload))
		}
	}
}

// Close tears down every topic subscription.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	topics := b.topics
	b.topics = make(map[string]*redisTopic)
	b.closed = true
	b.mu.Unlock()
	for _, t := range topics {
		_ = t.pubsub.Close()
	}
	return nil
}

type redisTopic struct {
	pubsub   *redis.PubSub
	mu       sync.RWMutex
	handlers map[*redisSubscription]Handler
}

type redisSubscription struct {
	b     *RedisBus
	topic string
	once  sync.Once
}

// Close removes the handler and drops the upstream subscription when it was
// the topic's last one.  Idempotent.
func (s *redisSubscription) Close() error {
	s.once.Do(func() {
		s.b.mu.Lock()
		t, ok := s.b.topics[s.topic]
		if !ok {
			s.b.mu.Unlock()
			return
		}
		t.mu.Lock()
		delete(t.handlers, s)
		empty := len(t.handlers) == 0
		t.mu.Unlock()
		if empty {
			delete(s.b.topics, s.topic)
		}
		s.b.mu.Unlock()
		if empty {
			_ = t.pubsub.Close()
		}
	})
	return nil
}

var _ Bus = (*RedisBus)(nil)
