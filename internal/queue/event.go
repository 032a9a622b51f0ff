// Package queue defines message payloads exchanged over the message broker
// and the background consumer for the activity feed.
package queue

// ActivityEvent is published after a mutation commits.  It carries enough
// for downstream consumers (activity feed, notifications, analytics) to act
// without querying the primary database.
type ActivityEvent struct {
	RestaurantID  string `json:"restaurant_id"`
	TransactionID string `json:"transaction_id"`
	EntityType    string `json:"entity_type"`
	EntityID      string `json:"entity_id"`
	Action        string `json:"action"`
	GuestName     string `json:"guest_name,omitempty"`
	GuestStatus   string `json:"guest_status,omitempty"`
	TableNumber   string `json:"table_number,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}
