package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/floorsync/floorsync/internal/model"
)

const tableColumns = `id, restaurant_id, table_number, capacity, status, position_x, position_y,
                      shape, section, current_guest_id, created_at, updated_at`

// TableRepo provides data access to the restaurant_tables table.
type TableRepo struct {
	db *sql.DB
}

// NewTableRepo returns a new TableRepo bound to the given database.
func NewTableRepo(db *sql.DB) *TableRepo { return &TableRepo{db: db} }

func scanTable(row rowScanner) (*model.Table, error) {
	var t model.Table
	var section, guestID sql.NullString
	err := row.Scan(
		&t.ID, &t.RestaurantID, &t.TableNumber, &t.Capacity, &t.Status,
		&t.PositionX, &t.PositionY, &t.Shape,
		&section, &guestID,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if section.Valid {
		v := section.String
		t.Section = &v
	}
	if guestID.Valid {
		v := guestID.String
		t.CurrentGuestID = &v
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return &t, nil
}

// GetForUpdateTx loads a table by id inside the given transaction and takes
// a row lock on it.  Returns ErrNotFound when no row exists.
func (r *TableRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, tableID string) (*model.Table, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+tableColumns+` FROM restaurant_tables WHERE id = ? FOR UPDATE`, tableID)
	t, err := scanTable(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return t, err
}

// InsertTx creates a new table row within the provided transaction.
func (r *TableRepo) InsertTx(ctx context.Context, tx *sql.Tx, t *model.Table) error {
	const q = `INSERT INTO restaurant_tables
	           (id, restaurant_id, table_number, capacity, status, position_x, position_y,
	            shape, section, current_guest_id, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q,
		t.ID, t.RestaurantID, t.TableNumber, t.Capacity, t.Status, t.PositionX, t.PositionY,
		t.Shape, t.Section, t.CurrentGuestID, t.CreatedAt, t.UpdatedAt,
	)
	return err
}

// UpdateTx persists every mutable column of an existing table within the
// provided transaction.
func (r *TableRepo) UpdateTx(ctx context.Context, tx *sql.Tx, t *model.Table) error {
	const q = `UPDATE restaurant_tables
	           SET table_number = ?, capacity = ?, status = ?, position_x = ?, position_y = ?,
	               shape = ?, section = ?, current_guest_id = ?, updated_at = ?
	           WHERE id = ?`
	_, err := tx.ExecContext(ctx, q,
		t.TableNumber, t.Capacity, t.Status, t.PositionX, t.PositionY,
		t.Shape, t.Section, t.CurrentGuestID, t.UpdatedAt,
		t.ID,
	)
	return err
}

// ListByRestaurant returns every table of a restaurant.
func (r *TableRepo) ListByRestaurant(ctx context.Context, restaurantID string) ([]model.Table, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+tableColumns+` FROM restaurant_tables WHERE restaurant_id = ? ORDER BY created_at ASC, id ASC`,
		restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTables(rows)
}

// ListUpdatedSince mirrors GuestRepo.ListUpdatedSince for tables.
func (r *TableRepo) ListUpdatedSince(ctx context.Context, restaurantID string, since time.Time) ([]model.Table, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+tableColumns+` FROM restaurant_tables
		 WHERE restaurant_id = ? AND updated_at > ?
		 ORDER BY updated_at ASC, id ASC`,
		restaurantID, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTables(rows)
}

func collectTables(rows *sql.Rows) ([]model.Table, error) {
	tables := make([]model.Table, 0)
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tables, nil
}
