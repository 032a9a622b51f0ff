// Package realtime fans accepted changes out to connected dashboard
// clients.  It holds the connection registry, the broadcast dispatcher that
// bridges change sets onto the cross-process bus, the per-connection
// websocket plumbing and the heartbeat monitor.
package realtime

import "time"

// Wire message types exchanged with clients, beyond the
// "<entity>_<action>" event types derived from change-set deltas.
const (
	TypeConnectionEstablished = "connection_established"
	TypeTransactionComplete   = "transaction_complete"
	TypePing                  = "ping"
	TypePong                  = "pong"
)

// Event is the wire representation of one change-set delta, of the
// transaction-complete marker, or of a control message.  Seq is a
// per-restaurant monotonically increasing marker: clients use it to order
// events and to detect duplicate delivery after a bus retry.
type Event struct {
	Type             string   `json:"type"`
	RestaurantID     string   `json:"restaurant_id,omitempty"`
	EntityID         string   `json:"entity_id,omitempty"`
	Timestamp        string   `json:"timestamp"`
	Seq              int64    `json:"seq,omitempty"`
	TransactionID    string   `json:"transaction_id,omitempty"`
	Data             any      `json:"data,omitempty"`
	AffectedEntities []string `json:"affected_entities,omitempty"`
}

func wireTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
