package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/floorsync/floorsync/internal/model"
)

// guestColumns is the canonical column list scanned by scanGuest.  Keep the
// two in sync when the schema changes.
const guestColumns = `id, restaurant_id, name, party_size, status, table_id, phone, notes,
                      check_in_time, seated_time, finished_time, created_at, updated_at`

// GuestRepo provides data access to the guests table.  All timestamp
// columns are DATETIME(6) stored in UTC; the DSN uses parseTime=true and
// loc=UTC so values scan directly into time.Time.
type GuestRepo struct {
	db *sql.DB
}

// NewGuestRepo returns a new GuestRepo bound to the given database.
func NewGuestRepo(db *sql.DB) *GuestRepo { return &GuestRepo{db: db} }

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanGuest(row rowScanner) (*model.Guest, error) {
	var g model.Guest
	var tableID, phone, notes sql.NullString
	var checkIn, seated, finished sql.NullTime
	err := row.Scan(
		&g.ID, &g.RestaurantID, &g.Name, &g.PartySize, &g.Status,
		&tableID, &phone, &notes,
		&checkIn, &seated, &finished,
		&g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if tableID.Valid {
		v := tableID.String
		g.TableID = &v
	}
	if phone.Valid {
		v := phone.String
		g.Phone = &v
	}
	if notes.Valid {
		v := notes.String
		g.Notes = &v
	}
	if checkIn.Valid {
		v := checkIn.Time.UTC()
		g.CheckInTime = &v
	}
	if seated.Valid {
		v := seated.Time.UTC()
		g.SeatedTime = &v
	}
	if finished.Valid {
		v := finished.Time.UTC()
		g.FinishedTime = &v
	}
	g.CreatedAt = g.CreatedAt.UTC()
	g.UpdatedAt = g.UpdatedAt.UTC()
	return &g, nil
}

// GetForUpdateTx loads a guest by id inside the given transaction and takes
// a row lock on it.  Returns ErrNotFound when no row exists.
func (r *GuestRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, guestID string) (*model.Guest, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+guestColumns+` FROM guests WHERE id = ? FOR UPDATE`, guestID)
	g, err := scanGuest(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return g, err
}

// InsertTx creates a new guest row within the provided transaction.  The
// caller must populate ID, CreatedAt and UpdatedAt.
func (r *GuestRepo) InsertTx(ctx context.Context, tx *sql.Tx, g *model.Guest) error {
	const q = `INSERT INTO guests
	           (id, restaurant_id, name, party_size, status, table_id, phone, notes,
	            check_in_time, seated_time, finished_time, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q,
		g.ID, g.RestaurantID, g.Name, g.PartySize, g.Status, g.TableID, g.Phone, g.Notes,
		g.CheckInTime, g.SeatedTime, g.FinishedTime, g.CreatedAt, g.UpdatedAt,
	)
	return err
}

// UpdateTx persists every mutable column of an existing guest within the
// provided transaction.
func (r *GuestRepo) UpdateTx(ctx context.Context, tx *sql.Tx, g *model.Guest) error {
	const q = `UPDATE guests
	           SET name = ?, party_size = ?, status = ?, table_id = ?, phone = ?, notes = ?,
	               check_in_time = ?, seated_time = ?, finished_time = ?, updated_at = ?
	           WHERE id = ?`
	_, err := tx.ExecContext(ctx, q,
		g.Name, g.PartySize, g.Status, g.TableID, g.Phone, g.Notes,
		g.CheckInTime, g.SeatedTime, g.FinishedTime, g.UpdatedAt,
		g.ID,
	)
	return err
}

// ListByRestaurant returns every guest of a restaurant, ordered by creation
// time then id for deterministic output.
func (r *GuestRepo) ListByRestaurant(ctx context.Context, restaurantID string) ([]model.Guest, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+guestColumns+` FROM guests WHERE restaurant_id = ? ORDER BY created_at ASC, id ASC`,
		restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGuests(rows)
}

// ListUpdatedSince returns every guest whose updated_at is strictly greater
// than since, ordered by updated_at ascending with ties broken by id.  The
// strict comparison means a client that passes back the timestamp of its
// last processed change never sees that change again.
func (r *GuestRepo) ListUpdatedSince(ctx context.Context, restaurantID string, since time.Time) ([]model.Guest, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+guestColumns+` FROM guests
		 WHERE restaurant_id = ? AND updated_at > ?
		 ORDER BY updated_at ASC, id ASC`,
		restaurantID, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGuests(rows)
}

func collectGuests(rows *sql.Rows) ([]model.Guest, error) {
	guests := make([]model.Guest, 0)
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, err
		}
		guests = append(guests, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return guests, nil
}
