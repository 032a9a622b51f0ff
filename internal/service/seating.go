// Package service contains the domain services of the synchronization
// core: the seating service, which applies guest/table transitions inside
// one storage transaction, and the reconciler, which answers snapshot and
// delta queries for clients catching up after a gap.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/floorsync/floorsync/internal/metrics"
	"github.com/floorsync/floorsync/internal/model"
	"github.com/floorsync/floorsync/internal/repository"
)

const (
	txMaxAttempts = 3
	txRetryBase   = 50 * time.Millisecond
)

// SeatingService applies validated status and table-assignment changes to a
// guest and its table inside a single storage transaction, preserving the
// bidirectional occupancy invariant.  It is the sole write path for any
// change that touches both entities.
type SeatingService struct {
	store  repository.Store
	logger zerolog.Logger
	now    func() time.Time
}

// NewSeatingService returns a SeatingService backed by the given store.
func NewSeatingService(store repository.Store, logger zerolog.Logger) *SeatingService {
	return &SeatingService{
		store:  store,
		logger: logger,
		// Truncated to microseconds so in-memory values compare equal to
		// what a DATETIME(6) column hands back.
		now: func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// TransitionRequest describes one requested change to a guest.  Status and
// the table assignment are each optional; HasTable distinguishes "the
// request did not mention the table" from "the request explicitly clears
// it" (HasTable true with a nil or empty TableID).
type TransitionRequest struct {
	Status   *string
	TableID  *string
	HasTable bool
}

// Transition applies req to the guest and returns the change set describing
// every entity actually mutated.
//
// Conflict policy: when the target table already has a different occupant,
// that guest is demoted to the waitlist status and detached inside the same
// transaction before the new guest is attached, so assignment is always
// safe to call without a prior availability check.
//
// Terminal-status policy: a transition into finished, cancelled or noShow
// always clears the guest's table reference and, if the guest had a table,
// frees it, regardless of what the request said about the table.
//
// Transient commit failures (deadlock, lock wait timeout) are retried a
// bounded number of times with backoff before surfacing; nothing is ever
// partially applied.
func (s *SeatingService) Transition(ctx context.Context, restaurantID, guestID string, req TransitionRequest) (model.ChangeSet, error) {
	if req.Status != nil && !model.ValidGuestStatus(*req.Status) {
		return model.ChangeSet{}, fmt.Errorf("status %q: %w", *req.Status, repository.ErrInvalidStatus)
	}
	var cs model.ChangeSet
	var err error
	for attempt := 1; ; attempt++ {
		cs, err = s.transitionOnce(ctx, restaurantID, guestID, req)
		if err == nil || !repository.IsTransient(err) || attempt == txMaxAttempts {
			return cs, err
		}
		metrics.MutationRetries.Inc()
		s.logger.Warn().
			Str("guest_id", guestID).
			Int("attempt", attempt).
			Err(err).
			Msg("seating transaction lost a race, retrying")
		select {
		case <-time.After(txRetryBase * time.Duration(attempt)):
		case <-ctx.Done():
			return model.ChangeSet{}, ctx.Err()
		}
	}
}

func (s *SeatingService) transitionOnce(ctx context.Context, restaurantID, guestID string, req TransitionRequest) (model.ChangeSet, error) {
	var (
		acted     *model.Guest
		displaced *model.Guest
		tables    []*model.Table
	)
	err := s.store.RunTx(ctx, func(tx repository.Tx) error {
		acted, displaced, tables = nil, nil, nil

		g, err := tx.GuestForUpdate(ctx, guestID)
		if err != nil {
			return err
		}
		if g.RestaurantID != restaurantID {
			return repository.ErrTenantMismatch
		}
		now := s.now()
		changed := false

		newStatus := g.Status
		if req.Status != nil {
			newStatus = *req.Status
		}
		terminal := model.TerminalGuestStatus(newStatus)

		if req.HasTable && !terminal {
			if req.TableID != nil && *req.TableID != "" {
				target, err := tx.TableForUpdate(ctx, *req.TableID)
				if err != nil {
					return err
				}
				if target.RestaurantID != restaurantID {
					return repository.ErrTenantMismatch
				}
				if g.TableID == nil || *g.TableID != target.ID {
					if target.CurrentGuestID != nil && *target.CurrentGuestID != g.ID {
						occ, err := tx.GuestForUpdate(ctx, *target.CurrentGuestID)
						if err != nil && !errors.Is(err, repository.ErrNotFound) {
							return err
						}
						if err == nil {
							occ.Status = model.GuestWaitlist
							occ.TableID = nil
							occ.UpdatedAt = now
							if err := tx.UpdateGuest(ctx, occ); err != nil {
								return err
							}
							displaced = occ
						}
					}
					if g.TableID != nil {
						released, err := releaseTable(ctx, tx, *g.TableID, g.ID, now)
						if err != nil {
							return err
						}
						if released != nil {
							tables = append(tables, released)
						}
					}
					target.Status = model.TableOccupied
					gid := g.ID
					target.CurrentGuestID = &gid
					target.UpdatedAt = now
					if err := tx.UpdateTable(ctx, target); err != nil {
						return err
					}
					tables = append(tables, target)
					tid := target.ID
					g.TableID = &tid
					changed = true
				}
				// Seating a guest implies the seated status unless the
				// caller asked for a different one explicitly.
				if req.Status == nil && g.Status != model.GuestSeated {
					newStatus = model.GuestSeated
				}
			} else if g.TableID != nil {
				// Explicit unassignment: guest goes back to the floor.
				released, err := releaseTable(ctx, tx, *g.TableID, g.ID, now)
				if err != nil {
					return err
				}
				if released != nil {
					tables = append(tables, released)
				}
				g.TableID = nil
				changed = true
			}
		}

		if terminal && g.TableID != nil {
			released, err := releaseTable(ctx, tx, *g.TableID, g.ID, now)
			if err != nil {
				return err
			}
			if released != nil {
				tables = append(tables, released)
			}
			g.TableID = nil
			changed = true
		}

		if newStatus != g.Status {
			g.Status = newStatus
			switch newStatus {
			case model.GuestArrived:
				if g.CheckInTime == nil {
					g.CheckInTime = &now
				}
			case model.GuestSeated:
				if g.SeatedTime == nil {
					g.SeatedTime = &now
				}
			case model.GuestFinished:
				g.FinishedTime = &now
			}
			changed = true
		}

		if changed {
			g.UpdatedAt = now
			if err := tx.UpdateGuest(ctx, g); err != nil {
				return err
			}
		}
		acted = g
		return nil
	})
	if err != nil {
		return model.ChangeSet{}, err
	}

	cs := model.NewChangeSet()
	if displaced != nil {
		cs.Add(model.EntityGuest, displaced.ID, model.ActionUpdated, displaced)
	}
	cs.Add(model.EntityGuest, acted.ID, model.ActionUpdated, acted)
	for _, t := range tables {
		cs.Add(model.EntityTable, t.ID, model.ActionUpdated, t)
	}
	return cs, nil
}

// releaseTable frees a table previously occupied by guestID.  A missing row
// is tolerated; a table that meanwhile points at a different guest is left
// alone so a racing assignment is not undone.
func releaseTable(ctx context.Context, tx repository.Tx, tableID, guestID string, now time.Time) (*model.Table, error) {
	t, err := tx.TableForUpdate(ctx, tableID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if t.CurrentGuestID != nil && *t.CurrentGuestID != guestID {
		return nil, nil
	}
	t.Status = model.TableAvailable
	t.CurrentGuestID = nil
	t.UpdatedAt = now
	if err := tx.UpdateTable(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// CreateGuestParams carries the fields accepted when adding a walk-in or
// called-in party to the waitlist.
type CreateGuestParams struct {
	Name      string
	PartySize int
	Phone     *string
	Notes     *string
}

// CreateGuest inserts a new waitlisted guest and returns its change set.
func (s *SeatingService) CreateGuest(ctx context.Context, restaurantID string, p CreateGuestParams) (model.ChangeSet, error) {
	now := s.now()
	g := &model.Guest{
		ID:           uuid.NewString(),
		RestaurantID: restaurantID,
		Name:         p.Name,
		PartySize:    p.PartySize,
		Status:       model.GuestWaitlist,
		Phone:        p.Phone,
		Notes:        p.Notes,
		CheckInTime:  &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := s.store.RunTx(ctx, func(tx repository.Tx) error {
		return tx.InsertGuest(ctx, g)
	})
	if err != nil {
		return model.ChangeSet{}, err
	}
	cs := model.NewChangeSet()
	cs.Add(model.EntityGuest, g.ID, model.ActionCreated, g)
	return cs, nil
}

// CreateTableParams carries the fields accepted when placing a new table on
// the floor plan.  X/Y may be pixel coordinates against the declared extent
// or values already normalized to the unit square; they are always stored
// normalized.
type CreateTableParams struct {
	TableNumber string
	Capacity    int
	X, Y        float64
	ExtentW     float64
	ExtentH     float64
	Shape       string
	Section     *string
}

// CreateTable inserts a new available table and returns its change set.
func (s *SeatingService) CreateTable(ctx context.Context, restaurantID string, p CreateTableParams) (model.ChangeSet, error) {
	pos := model.NormalizePosition(p.X, p.Y, p.ExtentW, p.ExtentH)
	shape := p.Shape
	if shape == "" {
		shape = "round"
	}
	now := s.now()
	t := &model.Table{
		ID:           uuid.NewString(),
		RestaurantID: restaurantID,
		TableNumber:  p.TableNumber,
		Capacity:     p.Capacity,
		Status:       model.TableAvailable,
		PositionX:    pos.X,
		PositionY:    pos.Y,
		Shape:        shape,
		Section:      p.Section,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := s.store.RunTx(ctx, func(tx repository.Tx) error {
		return tx.InsertTable(ctx, t)
	})
	if err != nil {
		return model.ChangeSet{}, err
	}
	cs := model.NewChangeSet()
	cs.Add(model.EntityTable, t.ID, model.ActionCreated, t)
	return cs, nil
}
