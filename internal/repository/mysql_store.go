package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/floorsync/floorsync/internal/model"
)

// MySQLStore implements Store on top of database/sql with the MySQL driver.
// It is the production backend; the row locks taken by the ...ForUpdate
// methods are what serialize concurrent seating requests for the same table.
type MySQLStore struct {
	db     *sql.DB
	guests *GuestRepo
	tables *TableRepo
}

// NewMySQLStore returns a Store backed by the given database handle.
func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{
		db:     db,
		guests: NewGuestRepo(db),
		tables: NewTableRepo(db),
	}
}

// RunTx executes fn inside one transaction.  Any error from fn (or from
// commit) rolls the transaction back; nothing is applied.
func (s *MySQLStore) RunTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&mysqlTx{tx: tx, s: s}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Guests returns every guest of a restaurant.
func (s *MySQLStore) Guests(ctx context.Context, restaurantID string) ([]model.Guest, error) {
	return s.guests.ListByRestaurant(ctx, restaurantID)
}

// Tables returns every table of a restaurant.
func (s *MySQLStore) Tables(ctx context.Context, restaurantID string) ([]model.Table, error) {
	return s.tables.ListByRestaurant(ctx, restaurantID)
}

// GuestsSince returns guests changed strictly after since.
func (s *MySQLStore) GuestsSince(ctx context.Context, restaurantID string, since time.Time) ([]model.Guest, error) {
	return s.guests.ListUpdatedSince(ctx, restaurantID, since)
}

// TablesSince returns tables changed strictly after since.
func (s *MySQLStore) TablesSince(ctx context.Context, restaurantID string, since time.Time) ([]model.Table, error) {
	return s.tables.ListUpdatedSince(ctx, restaurantID, since)
}

type mysqlTx struct {
	tx *sql.Tx
	s  *MySQLStore
}

func (t *mysqlTx) GuestForUpdate(ctx context.Context, guestID string) (*model.Guest, error) {
	return t.s.guests.GetForUpdateTx(ctx, t.tx, guestID)
}

func (t *mysqlTx) TableForUpdate(ctx context.Context, tableID string) (*model.Table, error) {
	return t.s.tables.GetForUpdateTx(ctx, t.tx, tableID)
}

func (t *mysqlTx) UpdateGuest(ctx context.Context, g *model.Guest) error {
	return t.s.guests.UpdateTx(ctx, t.tx, g)
}

func (t *mysqlTx) UpdateTable(ctx context.Context, tbl *model.Table) error {
	return t.s.tables.UpdateTx(ctx, t.tx, tbl)
}

func (t *mysqlTx) InsertGuest(ctx context.Context, g *model.Guest) error {
	return t.s.guests.InsertTx(ctx, t.tx, g)
}

func (t *mysqlTx) InsertTable(ctx context.Context, tbl *model.Table) error {
	return t.s.tables.InsertTx(ctx, t.tx, tbl)
}

var _ Store = (*MySQLStore)(nil)
