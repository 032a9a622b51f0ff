package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/floorsync/floorsync/internal/bus"
	"github.com/floorsync/floorsync/internal/metrics"
	"github.com/floorsync/floorsync/internal/model"
)

const topicPrefix = "floorsync:events:"

// Topic returns the bus topic carrying events for one restaurant.
func Topic(restaurantID string) string {
	return topicPrefix + restaurantID
}

func restaurantFromTopic(topic string) string {
	return strings.TrimPrefix(topic, topicPrefix)
}

// Dispatcher bridges committed change sets onto the bus and bus messages
// onto local client connections.  Every event takes the same path,
// including to clients connected to the publishing process: the mutation is
// published to the bus and comes back through the process's own
// subscription.  One delivery path means one ordering to reason about.
type Dispatcher struct {
	bus      bus.Bus
	registry *Registry
	seq      Sequencer
	logger   zerolog.Logger
	now      func() time.Time

	mu   sync.Mutex
	subs map[string]*topicRef
}

type topicRef struct {
	sub  bus.Subscription
	refs int
}

// NewDispatcher wires a Dispatcher over the given bus and registry.
func NewDispatcher(b bus.Bus, registry *Registry, seq Sequencer, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		bus:      b,
		registry: registry,
		seq:      seq,
		logger:   logger,
		now:      time.Now,
		subs:     make(map[string]*topicRef),
	}
}

// Publish turns the change set into wire events and hands them to the bus.
// When the set holds more than one delta a transaction_complete marker
// follows the deltas, so clients can treat the batch as one atomic update.
//
// Publish never returns an error: the caller's storage transaction has
// already committed and must be reported as a success.  Bus failures are
// logged and metered; clients recover the missed events through delta sync.
func (d *Dispatcher) Publish(ctx context.Context, restaurantID string, cs model.ChangeSet) {
	ts := wireTime(d.now())
	for _, delta := range cs.Deltas {
		d.publishEvent(ctx, restaurantID, Event{
			Type:          delta.Entity + "_" + delta.Action,
			RestaurantID:  restaurantID,
			EntityID:      delta.EntityID,
			Timestamp:     ts,
			Seq:           d.seq.Next(ctx, restaurantID),
			TransactionID: cs.TransactionID,
			Data:          delta.Data,
		})
	}
	if len(cs.Deltas) > 1 {
		d.publishEvent(ctx, restaurantID, Event{
			Type:             TypeTransactionComplete,
			RestaurantID:     restaurantID,
			Timestamp:        ts,
			Seq:              d.seq.Next(ctx, restaurantID),
			TransactionID:    cs.TransactionID,
			AffectedEntities: cs.AffectedIDs(),
		})
	}
}

func (d *Dispatcher) publishEvent(ctx context.Context, restaurantID string, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		d.logger.Error().Err(err).Str("type", ev.Type).Msg("event marshal failed")
		metrics.BroadcastFailures.Inc()
		return
	}
	metrics.EventsPublished.WithLabelValues(ev.Type).Inc()
	if err := d.bus.Publish(ctx, Topic(restaurantID), payload); err != nil {
		d.logger.Error().
			Err(err).
			Str("restaurant_id", restaurantID).
			Str("type", ev.Type).
			Str("transaction_id", ev.TransactionID).
			Msg("event dropped after publish retries")
		metrics.BroadcastFailures.Inc()
	}
}

// Attach registers the connection and ensures a bus subscription exists for
// its restaurant.  Subscriptions are shared per restaurant and reference
// counted, so a restaurant with fifty dashboards holds one bus
// subscription, not fifty.
func (d *Dispatcher) Attach(c Connection) error {
	if err := d.registry.Register(c); err != nil {
		return err
	}
	topic := Topic(c.RestaurantID())
	d.mu.Lock()
	if ref, ok := d.subs[topic]; ok {
		ref.refs++
		d.mu.Unlock()
		return nil
	}
	sub, err := d.bus.Subscribe(topic, d.deliver)
	if err != nil {
		d.mu.Unlock()
		d.registry.Unregister(c)
		return err
	}
	d.subs[topic] = &topicRef{sub: sub, refs: 1}
	d.mu.Unlock()
	return nil
}

// Detach removes the connection, dropping the restaurant's bus
// subscription when it was the last one.  Safe to call more than once; the
// read pump, the heartbeat monitor and backpressure eviction all race to be
// first.
func (d *Dispatcher) Detach(c Connection) {
	if !d.registry.Unregister(c) {
		return
	}
	topic := Topic(c.RestaurantID())
	var closing bus.Subscription
	d.mu.Lock()
	if ref, ok := d.subs[topic]; ok {
		ref.refs--
		if ref.refs == 0 {
			delete(d.subs, topic)
			closing = ref.sub
		}
	}
	d.mu.Unlock()
	if closing != nil {
		if err := closing.Close(); err != nil {
			d.logger.Warn().Err(err).Str("topic", topic).Msg("subscription close failed")
		}
	}
}

// deliver fans one bus payload out to the local connections of the topic's
// restaurant.  A connection that cannot accept the payload is evicted: a
// reader that slow will only fall further behind, and on reconnect it
// resynchronizes through a snapshot anyway.
func (d *Dispatcher) deliver(topic string, payload []byte) {
	restaurantID := restaurantFromTopic(topic)
	d.registry.ForEach(restaurantID, func(c Connection) {
		if c.Send(payload) {
			return
		}
		metrics.DroppedSends.Inc()
		metrics.ConnectionsEvicted.Inc()
		d.logger.Warn().
			Str("restaurant_id", restaurantID).
			Msg("send queue full, evicting connection")
		d.Detach(c)
		c.Close()
	})
}
