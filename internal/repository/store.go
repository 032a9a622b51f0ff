package repository

import (
	"context"
	"time"

	"github.com/floorsync/floorsync/internal/model"
)

// Tx is the set of row operations available inside one storage transaction.
// The ...ForUpdate methods take row locks so that two concurrent requests
// racing for the same table are serialized by the database, not by
// application mutexes.
type Tx interface {
	// GuestForUpdate loads and locks a guest row.  Returns ErrNotFound
	// when no such guest exists.
	GuestForUpdate(ctx context.Context, guestID string) (*model.Guest, error)
	// TableForUpdate loads and locks a table row.  Returns ErrNotFound
	// when no such table exists.
	TableForUpdate(ctx context.Context, tableID string) (*model.Table, error)
	// UpdateGuest persists every mutable column of an existing guest.
	UpdateGuest(ctx context.Context, g *model.Guest) error
	// UpdateTable persists every mutable column of an existing table.
	UpdateTable(ctx context.Context, t *model.Table) error
	// InsertGuest creates a new guest row.
	InsertGuest(ctx context.Context, g *model.Guest) error
	// InsertTable creates a new table row.
	InsertTable(ctx context.Context, t *model.Table) error
}

// Store abstracts the persistence backend consumed by the seating service
// and the sync reconciler.  The production implementation is MySQL; an
// in-memory implementation backs single-process deployments and tests.
type Store interface {
	// RunTx executes fn inside one transaction.  When fn returns an
	// error the transaction is rolled back and nothing is applied.
	RunTx(ctx context.Context, fn func(tx Tx) error) error

	// Guests returns every guest of a restaurant.
	Guests(ctx context.Context, restaurantID string) ([]model.Guest, error)
	// Tables returns every table of a restaurant.
	Tables(ctx context.Context, restaurantID string) ([]model.Table, error)

	// GuestsSince returns guests whose updated_at is strictly greater
	// than since, ordered by updated_at ascending with ties broken by id.
	GuestsSince(ctx context.Context, restaurantID string, since time.Time) ([]model.Guest, error)
	// TablesSince is GuestsSince for tables.
	TablesSince(ctx context.Context, restaurantID string, since time.Time) ([]model.Table, error)
}
