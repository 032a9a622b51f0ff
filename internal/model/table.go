package model

import "time"

// Table status values.  Stored verbatim in restaurant_tables.status and
// sent to clients unchanged.
const (
	TableAvailable    = "available"
	TableOccupied     = "occupied"
	TableReserved     = "reserved"
	TableOutOfService = "outOfService"
)

var tableStatuses = map[string]struct{}{
	TableAvailable:    {},
	TableOccupied:     {},
	TableReserved:     {},
	TableOutOfService: {},
}

// ValidTableStatus reports whether s is one of the enumerated table statuses.
func ValidTableStatus(s string) bool {
	_, ok := tableStatuses[s]
	return ok
}

// Table is one physical table on a restaurant's floor plan.  PositionX and
// PositionY are always stored normalized to the unit square regardless of
// the coordinate system the creating client used; see NormalizePosition.
//
// CurrentGuestID mirrors Guest.TableID; the two references are kept
// bidirectional by the seating service and must never diverge.
type Table struct {
	ID             string    `json:"id"`
	RestaurantID   string    `json:"restaurant_id"`
	TableNumber    string    `json:"table_number"`
	Capacity       int       `json:"capacity"`
	Status         string    `json:"status"`
	PositionX      float64   `json:"position_x"`
	PositionY      float64   `json:"position_y"`
	Shape          string    `json:"shape,omitempty"`
	Section        *string   `json:"section,omitempty"`
	CurrentGuestID *string   `json:"current_guest_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
