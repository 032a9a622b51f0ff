package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

const activityQueueName = "floor.activity"

// PublishActivity publishes an ActivityEvent to the floor.activity queue.
// The connection is dialed per call: activity traffic is a trickle next to
// the websocket fan-out, and a short-lived connection avoids keeping broker
// state alive across the process lifetime.  Any error is logged and
// returned so the caller can ignore it; activity publishing must never fail
// a request whose transaction already committed.  Messages are persistent.
func PublishActivity(ctx context.Context, url string, event ActivityEvent) error {
	conn, err := amqp.Dial(url)
	if err != nil {
		log.Warn().Err(err).Msg("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Warn().Err(err).Msg("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare.  Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(activityQueueName, true, false, false, false, nil); err != nil {
		log.Warn().Err(err).Msg("rabbitmq: queue declare failed")
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Warn().Err(err).Msg("rabbitmq: marshal event failed")
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx, "", activityQueueName, false, false, pub); err != nil {
		log.Warn().Err(err).Msg("rabbitmq: publish failed")
		return err
	}
	return nil
}
