package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floorsync/floorsync/internal/model"
	"github.com/floorsync/floorsync/internal/repository"
)

const testRestaurant = "rest-1"

func newTestService(t *testing.T) (*SeatingService, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	return NewSeatingService(store, zerolog.Nop()), store
}

func seedGuest(t *testing.T, store *repository.MemoryStore, id, restaurantID, status string, tableID *string) {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	err := store.RunTx(context.Background(), func(tx repository.Tx) error {
		return tx.InsertGuest(context.Background(), &model.Guest{
			ID:           id,
			RestaurantID: restaurantID,
			Name:         "guest " + id,
			PartySize:    2,
			Status:       status,
			TableID:      tableID,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	})
	require.NoError(t, err)
}

func seedTable(t *testing.T, store *repository.MemoryStore, id, restaurantID, status string, guestID *string) {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	err := store.RunTx(context.Background(), func(tx repository.Tx) error {
		return tx.InsertTable(context.Background(), &model.Table{
			ID:             id,
			RestaurantID:   restaurantID,
			TableNumber:    id,
			Capacity:       4,
			Status:         status,
			Shape:          "round",
			CurrentGuestID: guestID,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	})
	require.NoError(t, err)
}

func getGuest(t *testing.T, store *repository.MemoryStore, id string) model.Guest {
	t.Helper()
	guests, err := store.Guests(context.Background(), testRestaurant)
	require.NoError(t, err)
	for _, g := range guests {
		if g.ID == id {
			return g
		}
	}
	t.Fatalf("guest %s not found", id)
	return model.Guest{}
}

func getTable(t *testing.T, store *repository.MemoryStore, id string) model.Table {
	t.Helper()
	tables, err := store.Tables(context.Background(), testRestaurant)
	require.NoError(t, err)
	for _, tb := range tables {
		if tb.ID == id {
			return tb
		}
	}
	t.Fatalf("table %s not found", id)
	return model.Table{}
}

func strp(s string) *string { return &s }

func TestTransitionAssignFreeTable(t *testing.T) {
	svc, store := newTestService(t)
	seedGuest(t, store, "g1", testRestaurant, model.GuestArrived, nil)
	seedTable(t, store, "t1", testRestaurant, model.TableAvailable, nil)

	cs, err := svc.Transition(context.Background(), testRestaurant, "g1",
		TransitionRequest{TableID: strp("t1"), HasTable: true})
	require.NoError(t, err)
	require.Len(t, cs.Deltas, 2)
	assert.Equal(t, model.EntityGuest, cs.Deltas[0].Entity)
	assert.Equal(t, model.EntityTable, cs.Deltas[1].Entity)

	g := getGuest(t, store, "g1")
	require.NotNil(t, g.TableID)
	assert.Equal(t, "t1", *g.TableID)
	// Assignment without an explicit status implies seating.
	assert.Equal(t, model.GuestSeated, g.Status)
	assert.NotNil(t, g.SeatedTime)

	tb := getTable(t, store, "t1")
	assert.Equal(t, model.TableOccupied, tb.Status)
	require.NotNil(t, tb.CurrentGuestID)
	assert.Equal(t, "g1", *tb.CurrentGuestID)
}

func TestTransitionDisplacesOccupant(t *testing.T) {
	svc, store := newTestService(t)
	seedGuest(t, store, "p1", testRestaurant, model.GuestArrived, nil)
	seedGuest(t, store, "p2", testRestaurant, model.GuestSeated, strp("r1"))
	seedTable(t, store, "r1", testRestaurant, model.TableOccupied, strp("p2"))

	cs, err := svc.Transition(context.Background(), testRestaurant, "p1",
		TransitionRequest{TableID: strp("r1"), HasTable: true})
	require.NoError(t, err)

	// Exactly three deltas: displaced guest, acted guest, table.
	require.Len(t, cs.Deltas, 3)
	assert.Equal(t, "p2", cs.Deltas[0].EntityID)
	assert.Equal(t, "p1", cs.Deltas[1].EntityID)
	assert.Equal(t, "r1", cs.Deltas[2].EntityID)

	p2 := getGuest(t, store, "p2")
	assert.Equal(t, model.GuestWaitlist, p2.Status)
	assert.Nil(t, p2.TableID)

	p1 := getGuest(t, store, "p1")
	require.NotNil(t, p1.TableID)
	assert.Equal(t, "r1", *p1.TableID)
	assert.Equal(t, model.GuestSeated, p1.Status)

	r1 := getTable(t, store, "r1")
	assert.Equal(t, model.TableOccupied, r1.Status)
	require.NotNil(t, r1.CurrentGuestID)
	assert.Equal(t, "p1", *r1.CurrentGuestID)
}

func TestTransitionMoveBetweenTables(t *testing.T) {
	svc, store := newTestService(t)
	seedGuest(t, store, "g1", testRestaurant, model.GuestSeated, strp("t1"))
	seedTable(t, store, "t1", testRestaurant, model.TableOccupied, strp("g1"))
	seedTable(t, store, "t2", testRestaurant, model.TableAvailable, nil)

	cs, err := svc.Transition(context.Background(), testRestaurant, "g1",
		TransitionRequest{TableID: strp("t2"), HasTable: true})
	require.NoError(t, err)
	require.Len(t, cs.Deltas, 3) // guest plus both tables

	t1 := getTable(t, store, "t1")
	assert.Equal(t, model.TableAvailable, t1.Status)
	assert.Nil(t, t1.CurrentGuestID)

	t2 := getTable(t, store, "t2")
	assert.Equal(t, model.TableOccupied, t2.Status)
	require.NotNil(t, t2.CurrentGuestID)
	assert.Equal(t, "g1", *t2.CurrentGuestID)

	g := getGuest(t, store, "g1")
	require.NotNil(t, g.TableID)
	assert.Equal(t, "t2", *g.TableID)
}

func TestTransitionExplicitUnassign(t *testing.T) {
	svc, store := newTestService(t)
	seedGuest(t, store, "g1", testRestaurant, model.GuestSeated, strp("t1"))
	seedTable(t, store, "t1", testRestaurant, model.TableOccupied, strp("g1"))

	cs, err := svc.Transition(context.Background(), testRestaurant, "g1",
		TransitionRequest{TableID: nil, HasTable: true})
	require.NoError(t, err)
	require.Len(t, cs.Deltas, 2)

	g := getGuest(t, store, "g1")
	assert.Nil(t, g.TableID)
	// Clearing the table alone does not change the status.
	assert.Equal(t, model.GuestSeated, g.Status)

	tb := getTable(t, store, "t1")
	assert.Equal(t, model.TableAvailable, tb.Status)
	assert.Nil(t, tb.CurrentGuestID)
}

func TestTransitionTerminalFreesTable(t *testing.T) {
	for _, status := range []string{model.GuestFinished, model.GuestCancelled, model.GuestNoShow} {
		t.Run(status, func(t *testing.T) {
			svc, store := newTestService(t)
			seedGuest(t, store, "g1", testRestaurant, model.GuestSeated, strp("t1"))
			seedTable(t, store, "t1", testRestaurant, model.TableOccupied, strp("g1"))

			cs, err := svc.Transition(context.Background(), testRestaurant, "g1",
				TransitionRequest{Status: strp(status)})
			require.NoError(t, err)
			require.Len(t, cs.Deltas, 2)

			g := getGuest(t, store, "g1")
			assert.Equal(t, status, g.Status)
			assert.Nil(t, g.TableID)

			tb := getTable(t, store, "t1")
			assert.Equal(t, model.TableAvailable, tb.Status)
			assert.Nil(t, tb.CurrentGuestID)
		})
	}
}

func TestTransitionTerminalIgnoresTableRequest(t *testing.T) {
	// A finishing guest never takes a table, even when the request names one.
	svc, store := newTestService(t)
	seedGuest(t, store, "g1", testRestaurant, model.GuestSeated, nil)
	seedTable(t, store, "t1", testRestaurant, model.TableAvailable, nil)

	_, err := svc.Transition(context.Background(), testRestaurant, "g1",
		TransitionRequest{Status: strp(model.GuestFinished), TableID: strp("t1"), HasTable: true})
	require.NoError(t, err)

	tb := getTable(t, store, "t1")
	assert.Equal(t, model.TableAvailable, tb.Status)
	assert.Nil(t, tb.CurrentGuestID)
	g := getGuest(t, store, "g1")
	assert.Nil(t, g.TableID)
	assert.Equal(t, model.GuestFinished, g.Status)
}

func TestTransitionRedundantTerminalIsIdempotent(t *testing.T) {
	svc, store := newTestService(t)
	seedGuest(t, store, "g1", testRestaurant, model.GuestFinished, nil)
	before := getGuest(t, store, "g1")

	cs, err := svc.Transition(context.Background(), testRestaurant, "g1",
		TransitionRequest{Status: strp(model.GuestFinished)})
	require.NoError(t, err)
	require.Len(t, cs.Deltas, 1)
	assert.Equal(t, "g1", cs.Deltas[0].EntityID)

	after := getGuest(t, store, "g1")
	assert.True(t, before.UpdatedAt.Equal(after.UpdatedAt), "no-op must not bump updated_at")
}

func TestTransitionStatusTimestamps(t *testing.T) {
	svc, store := newTestService(t)
	seedGuest(t, store, "g1", testRestaurant, model.GuestConfirmed, nil)

	_, err := svc.Transition(context.Background(), testRestaurant, "g1",
		TransitionRequest{Status: strp(model.GuestArrived)})
	require.NoError(t, err)
	g := getGuest(t, store, "g1")
	require.NotNil(t, g.CheckInTime)
	checkIn := *g.CheckInTime

	_, err = svc.Transition(context.Background(), testRestaurant, "g1",
		TransitionRequest{Status: strp(model.GuestSeated)})
	require.NoError(t, err)
	g = getGuest(t, store, "g1")
	require.NotNil(t, g.SeatedTime)
	// First arrival timestamp sticks.
	require.NotNil(t, g.CheckInTime)
	assert.True(t, checkIn.Equal(*g.CheckInTime))

	_, err = svc.Transition(context.Background(), testRestaurant, "g1",
		TransitionRequest{Status: strp(model.GuestFinished)})
	require.NoError(t, err)
	g = getGuest(t, store, "g1")
	require.NotNil(t, g.FinishedTime)
}

func TestTransitionErrors(t *testing.T) {
	svc, store := newTestService(t)
	seedGuest(t, store, "g1", testRestaurant, model.GuestWaitlist, nil)

	t.Run("invalid status", func(t *testing.T) {
		_, err := svc.Transition(context.Background(), testRestaurant, "g1",
			TransitionRequest{Status: strp("SEATED")})
		assert.ErrorIs(t, err, repository.ErrInvalidStatus)
	})

	t.Run("unknown guest", func(t *testing.T) {
		_, err := svc.Transition(context.Background(), testRestaurant, "nope",
			TransitionRequest{Status: strp(model.GuestArrived)})
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("guest of another restaurant", func(t *testing.T) {
		_, err := svc.Transition(context.Background(), "rest-2", "g1",
			TransitionRequest{Status: strp(model.GuestArrived)})
		assert.ErrorIs(t, err, repository.ErrTenantMismatch)
	})

	t.Run("table of another restaurant", func(t *testing.T) {
		seedTable(t, store, "foreign", "rest-2", model.TableAvailable, nil)
		_, err := svc.Transition(context.Background(), testRestaurant, "g1",
			TransitionRequest{TableID: strp("foreign"), HasTable: true})
		assert.ErrorIs(t, err, repository.ErrTenantMismatch)
	})
}

func TestTransitionFailureLeavesOccupancyUntouched(t *testing.T) {
	svc, store := newTestService(t)
	seedGuest(t, store, "g1", testRestaurant, model.GuestArrived, nil)
	seedGuest(t, store, "g2", testRestaurant, model.GuestSeated, strp("t1"))
	seedTable(t, store, "t1", testRestaurant, model.TableOccupied, strp("g2"))

	_, err := svc.Transition(context.Background(), "rest-2", "g1",
		TransitionRequest{TableID: strp("t1"), HasTable: true})
	require.Error(t, err)

	g2 := getGuest(t, store, "g2")
	assert.Equal(t, model.GuestSeated, g2.Status)
	require.NotNil(t, g2.TableID)
	assert.Equal(t, "t1", *g2.TableID)
}

func TestCreateGuest(t *testing.T) {
	svc, store := newTestService(t)
	cs, err := svc.CreateGuest(context.Background(), testRestaurant, CreateGuestParams{
		Name:      "Nilsson",
		PartySize: 4,
		Phone:     strp("555-0101"),
	})
	require.NoError(t, err)
	require.Len(t, cs.Deltas, 1)
	assert.Equal(t, model.EntityGuest, cs.Deltas[0].Entity)
	assert.Equal(t, model.ActionCreated, cs.Deltas[0].Action)

	g := getGuest(t, store, cs.Deltas[0].EntityID)
	assert.Equal(t, model.GuestWaitlist, g.Status)
	assert.NotNil(t, g.CheckInTime)
	assert.Equal(t, 4, g.PartySize)
}

func TestCreateTableNormalizesPosition(t *testing.T) {
	svc, store := newTestService(t)
	cs, err := svc.CreateTable(context.Background(), testRestaurant, CreateTableParams{
		TableNumber: "12",
		Capacity:    4,
		X:           200,
		Y:           150,
		ExtentW:     800,
		ExtentH:     600,
	})
	require.NoError(t, err)
	require.Len(t, cs.Deltas, 1)

	tb := getTable(t, store, cs.Deltas[0].EntityID)
	assert.Equal(t, 0.25, tb.PositionX)
	assert.Equal(t, 0.25, tb.PositionY)
	assert.Equal(t, "round", tb.Shape)
	assert.Equal(t, model.TableAvailable, tb.Status)
}
