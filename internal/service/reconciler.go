package service

import (
	"context"
	"time"

	"github.com/floorsync/floorsync/internal/model"
	"github.com/floorsync/floorsync/internal/repository"
)

// Reconciler answers "give me everything" and "give me everything changed
// since T" queries.  Clients call FullSnapshot on first connect and Delta
// after a reconnect, passing back the Timestamp of their last successful
// sync (or the timestamp of their last processed event).  The since value
// must always be one the server produced: a client wall clock can be
// skewed and would silently miss updates.
type Reconciler struct {
	store repository.Store
	now   func() time.Time
}

// NewReconciler returns a Reconciler backed by the given store.
func NewReconciler(store repository.Store) *Reconciler {
	return &Reconciler{
		store: store,
		now:   func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// SyncResult is the payload of both snapshot and delta queries.  Timestamp
// is captured before the store is read, so a row committed while the query
// runs is delivered again on the next delta rather than lost.  Duplicates
// are harmless; gaps are not.
type SyncResult struct {
	RestaurantID string        `json:"restaurant_id"`
	Timestamp    time.Time     `json:"timestamp"`
	Guests       []model.Guest `json:"guests"`
	Tables       []model.Table `json:"tables"`
}

// FullSnapshot returns every guest and table of the restaurant.
func (r *Reconciler) FullSnapshot(ctx context.Context, restaurantID string) (*SyncResult, error) {
	ts := r.now()
	guests, err := r.store.Guests(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	tables, err := r.store.Tables(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	return &SyncResult{RestaurantID: restaurantID, Timestamp: ts, Guests: guests, Tables: tables}, nil
}

// Delta returns every guest and table whose last-modified timestamp is
// strictly greater than since, ordered by that timestamp ascending with
// ties broken by id.
func (r *Reconciler) Delta(ctx context.Context, restaurantID string, since time.Time) (*SyncResult, error) {
	ts := r.now()
	guests, err := r.store.GuestsSince(ctx, restaurantID, since)
	if err != nil {
		return nil, err
	}
	tables, err := r.store.TablesSince(ctx, restaurantID, since)
	if err != nil {
		return nil, err
	}
	return &SyncResult{RestaurantID: restaurantID, Timestamp: ts, Guests: guests, Tables: tables}, nil
}
