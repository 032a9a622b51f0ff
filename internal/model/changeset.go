package model

import "github.com/google/uuid"

// Entity type names used in deltas and wire event types.
const (
	EntityGuest = "guest"
	EntityTable = "table"
)

// Delta actions.  The wire event type for a delta is "<entity>_<action>",
// e.g. "guest_updated" or "table_created".
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Delta describes the outcome for one entity touched by a mutation.  Data
// carries the resulting full entity snapshot (nil for deletions).
type Delta struct {
	Entity   string `json:"entity_type"`
	EntityID string `json:"entity_id"`
	Action   string `json:"action"`
	Data     any    `json:"data,omitempty"`
}

// ChangeSet is the ordered batch of entity deltas produced by one logical
// mutation.  It is the unit of atomicity (either every delta was durably
// committed or none were) and the unit of broadcast: its deltas are
// announced to clients as belonging to one transaction.
//
// Change sets are ephemeral: constructed after commit, handed to the
// dispatcher, and discarded.  They are never persisted.
type ChangeSet struct {
	TransactionID string  `json:"transaction_id"`
	Deltas        []Delta `json:"deltas"`
}

// NewChangeSet returns an empty change set with a fresh transaction id.
func NewChangeSet() ChangeSet {
	return ChangeSet{TransactionID: uuid.NewString()}
}

// Add appends one delta to the change set.
func (cs *ChangeSet) Add(entity, entityID, action string, data any) {
	cs.Deltas = append(cs.Deltas, Delta{Entity: entity, EntityID: entityID, Action: action, Data: data})
}

// AffectedIDs returns the ids of every entity touched, in delta order.
func (cs *ChangeSet) AffectedIDs() []string {
	ids := make([]string, 0, len(cs.Deltas))
	for _, d := range cs.Deltas {
		ids = append(ids, d.EntityID)
	}
	return ids
}
