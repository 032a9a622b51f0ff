package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/floorsync/floorsync/internal/model"
)

// MemoryStore is an in-memory Store for single-process deployments and
// tests.  Transactions are serialized by one mutex and roll back by
// restoring a snapshot of both maps, which gives the same all-or-nothing
// semantics as the MySQL backend at the scale this backend is meant for.
type MemoryStore struct {
	mu     sync.Mutex
	guests map[string]*model.Guest
	tables map[string]*model.Table
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		guests: make(map[string]*model.Guest),
		tables: make(map[string]*model.Table),
	}
}

func cloneGuest(g *model.Guest) *model.Guest {
	c := *g
	c.TableID = clonePtr(g.TableID)
	c.Phone = clonePtr(g.Phone)
	c.Notes = clonePtr(g.Notes)
	c.CheckInTime = clonePtr(g.CheckInTime)
	c.SeatedTime = clonePtr(g.SeatedTime)
	c.FinishedTime = clonePtr(g.FinishedTime)
	return &c
}

func cloneTable(t *model.Table) *model.Table {
	c := *t
	c.Section = clonePtr(t.Section)
	c.CurrentGuestID = clonePtr(t.CurrentGuestID)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// RunTx executes fn under the store lock.  On error the pre-transaction
// snapshot is restored.
func (s *MemoryStore) RunTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	savedGuests := make(map[string]*model.Guest, len(s.guests))
	for id, g := range s.guests {
		savedGuests[id] = cloneGuest(g)
	}
	savedTables := make(map[string]*model.Table, len(s.tables))
	for id, t := range s.tables {
		savedTables[id] = cloneTable(t)
	}

	if err := fn(&memoryTx{s: s}); err != nil {
		s.guests = savedGuests
		s.tables = savedTables
		return err
	}
	return nil
}

// Guests returns every guest of a restaurant ordered by creation time then id.
func (s *MemoryStore) Guests(ctx context.Context, restaurantID string) ([]model.Guest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Guest, 0)
	for _, g := range s.guests {
		if g.RestaurantID == restaurantID {
			out = append(out, *cloneGuest(g))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Tables returns every table of a restaurant ordered by creation time then id.
func (s *MemoryStore) Tables(ctx context.Context, restaurantID string) ([]model.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Table, 0)
	for _, t := range s.tables {
		if t.RestaurantID == restaurantID {
			out = append(out, *cloneTable(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GuestsSince returns guests with updated_at strictly greater than since,
// ordered by updated_at ascending with ties broken by id.
func (s *MemoryStore) GuestsSince(ctx context.Context, restaurantID string, since time.Time) ([]model.Guest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Guest, 0)
	for _, g := range s.guests {
		if g.RestaurantID == restaurantID && g.UpdatedAt.After(since) {
			out = append(out, *cloneGuest(g))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.Before(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// TablesSince is GuestsSince for tables.
func (s *MemoryStore) TablesSince(ctx context.Context, restaurantID string, since time.Time) ([]model.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Table, 0)
	for _, t := range s.tables {
		if t.RestaurantID == restaurantID && t.UpdatedAt.After(since) {
			out = append(out, *cloneTable(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.Before(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type memoryTx struct {
	s *MemoryStore
}

func (t *memoryTx) GuestForUpdate(ctx context.Context, guestID string) (*model.Guest, error) {
	g, ok := t.s.guests[guestID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneGuest(g), nil
}

func (t *memoryTx) TableForUpdate(ctx context.Context, tableID string) (*model.Table, error) {
	tbl, ok := t.s.tables[tableID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneTable(tbl), nil
}

func (t *memoryTx) UpdateGuest(ctx context.Context, g *model.Guest) error {
	if _, ok := t.s.guests[g.ID]; !ok {
		return ErrNotFound
	}
	t.s.guests[g.ID] = cloneGuest(g)
	return nil
}

func (t *memoryTx) UpdateTable(ctx context.Context, tbl *model.Table) error {
	if _, ok := t.s.tables[tbl.ID]; !ok {
		return ErrNotFound
	}
	t.s.tables[tbl.ID] = cloneTable(tbl)
	return nil
}

func (t *memoryTx) InsertGuest(ctx context.Context, g *model.Guest) error {
	t.s.guests[g.ID] = cloneGuest(g)
	return nil
}

func (t *memoryTx) InsertTable(ctx context.Context, tbl *model.Table) error {
	t.s.tables[tbl.ID] = cloneTable(tbl)
	return nil
}

var _ Store = (*MemoryStore)(nil)
