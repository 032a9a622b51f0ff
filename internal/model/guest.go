package model

import "time"

// Guest status values.  These strings travel over the wire to the mobile
// dashboard clients and are stored verbatim in the guests.status column,
// so they must match the client enumeration exactly.  Do not rename them
// without a coordinated client release.
const (
	GuestWaitlist         = "waitlist"
	GuestConfirmed        = "confirmed"
	GuestArrived          = "arrived"
	GuestPartiallyArrived = "partiallyArrived"
	GuestSeated           = "seated"
	GuestFinished         = "finished"
	GuestCancelled        = "cancelled"
	GuestNoShow           = "noShow"
	GuestRunningLate      = "runningLate"
)

// guestStatuses is the closed set of legal guest status values.
var guestStatuses = map[string]struct{}{
	GuestWaitlist:         {},
	GuestConfirmed:        {},
	GuestArrived:          {},
	GuestPartiallyArrived: {},
	GuestSeated:           {},
	GuestFinished:         {},
	GuestCancelled:        {},
	GuestNoShow:           {},
	GuestRunningLate:      {},
}

// ValidGuestStatus reports whether s is one of the enumerated guest statuses.
func ValidGuestStatus(s string) bool {
	_, ok := guestStatuses[s]
	return ok
}

// TerminalGuestStatus reports whether s ends a guest's visit.  A guest in a
// terminal status never occupies a table: every transition into one of these
// statuses clears the guest's table reference and frees the table.
func TerminalGuestStatus(s string) bool {
	return s == GuestFinished || s == GuestCancelled || s == GuestNoShow
}

// Guest is a waitlist entry for one party of visitors at a restaurant.
//
// Invariant: TableID is set if and only if the referenced table's
// CurrentGuestID points back at this guest.  Every transition that touches
// both sides runs inside a single storage transaction; the two references
// are never allowed to disagree.
type Guest struct {
	ID           string     `json:"id"`
	RestaurantID string     `json:"restaurant_id"`
	Name         string     `json:"name"`
	PartySize    int        `json:"party_size"`
	Status       string     `json:"status"`
	TableID      *string    `json:"table_id"`
	Phone        *string    `json:"phone,omitempty"`
	Notes        *string    `json:"notes,omitempty"`
	CheckInTime  *time.Time `json:"check_in_time,omitempty"`
	SeatedTime   *time.Time `json:"seated_time,omitempty"`
	FinishedTime *time.Time `json:"finished_time,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
