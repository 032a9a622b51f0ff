package bus

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by operations on a closed bus.
var ErrClosed = errors.New("bus: closed")

const memoryQueueSize = 256

// MemoryBus is the in-process Bus used when no Redis is configured and in
// tests.  Each subscription gets its own buffered channel and delivery
// goroutine, so per-topic ordering per subscriber matches the Redis
// implementation and a publisher is never blocked by a handler.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[string][]*memorySub
	closed bool
}

// NewMemoryBus returns an empty MemoryBus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string][]*memorySub)}
}

// Publish delivers payload to every current subscriber of topic.  A
// subscriber whose queue is full blocks the publish only until ctx is done.
func (b *MemoryBus) Publish(ctx context.Context, topic string, payload []byte) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	subs := append([]*memorySub(nil), b.subs[topic]...)
	b.mu.RUnlock()

	for _, s := range subs {
		select {
		case s.ch <- payload:
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe registers h for topic.
func (b *MemoryBus) Subscribe(topic string, h Handler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	s := &memorySub{
		b:     b,
		topic: topic,
		h:     h,
		ch:    make(chan []byte, memoryQueueSize),
		done:  make(chan struct{}),
	}
	b.subs[topic] = append(b.subs[topic], s)
	go s.loop()
	return s, nil
}

// Close tears down every subscription.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[string][]*memorySub)
	b.closed = true
	b.mu.Unlock()
	for _, list := range subs {
		for _, s := range list {
			s.stop()
		}
	}
	return nil
}

type memorySub struct {
	b     *MemoryBus
	topic string
	h     Handler
	ch    chan []byte
	done  chan struct{}
	once  sync.Once
}

func (s *memorySub) loop() {
	for {
		select {
		case p := <-s.ch:
			s.h(s.topic, p)
		case <-s.done:
			return
		}
	}
}

func (s *memorySub) stop() {
	s.once.Do(func() { close(s.done) })
}

// Close removes the subscription.  Idempotent.
func (s *memorySub) Close() error {
	s.b.mu.Lock()
	list := s.b.subs[s.topic]
	out := list[:0]
	for _, c := range list {
		if c != s {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		delete(s.b.subs, s.topic)
	} else {
		s.b.subs[s.topic] = out
	}
	s.b.mu.Unlock()
	s.stop()
	return nil
}

var _ Bus = (*MemoryBus)(nil)
