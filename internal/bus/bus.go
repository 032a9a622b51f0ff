// Package bus provides the topic-scoped publish/subscribe transport that
// makes one process's broadcasts visible to every other server process.
// Topics are per-restaurant.  Delivery is at-least-once per subscribing
// process; consumers must tolerate duplicates (event sequence numbers make
// repeats detectable).
//
// Two implementations exist: RedisBus for multi-process deployments and
// MemoryBus for single-process deployments and tests.  Both present
// identical observable behavior (same payloads, same per-topic ordering),
// so the fan-out code path does not branch on deployment shape.
package bus

import "context"

// Handler receives one published payload for a topic.  Handlers run on the
// bus's delivery goroutine and must not block.
type Handler func(topic string, payload []byte)

// Subscription is one registered handler.  Close is idempotent.
type Subscription interface {
	Close() error
}

// Bus is the cross-process publish/subscribe transport.
type Bus interface {
	// Publish sends payload to every subscriber of topic, in every
	// process.  Implementations retry transient failures a bounded
	// number of times and then return an error; they never block the
	// caller indefinitely.
	Publish(ctx context.Context, topic string, payload []byte) error
	// Subscribe registers h for every future payload published on topic.
	Subscribe(topic string, h Handler) (Subscription, error)
	// Close tears down every subscription.
	Close() error
}
