package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/floorsync/floorsync/internal/model"
	"github.com/floorsync/floorsync/internal/queue"
	"github.com/floorsync/floorsync/internal/realtime"
	"github.com/floorsync/floorsync/internal/repository"
)

// mutationError maps the seating service's typed errors onto HTTP status
// codes.  Transient storage failures surface as 503 so clients know the
// request is safe to retry as-is.
func mutationError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, repository.ErrTenantMismatch):
		return c.JSON(http.StatusForbidden, map[string]string{"error": "entity belongs to another restaurant"})
	case errors.Is(err, repository.ErrInvalidStatus):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid status"})
	case repository.IsTransient(err):
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "storage busy, retry"})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "mutation failed"})
	}
}

// broadcast hands the committed change set to the dispatcher and, when a
// broker is configured, publishes an activity event in the background.
// Both are strictly after-commit and best-effort.
func broadcast(ctx context.Context, d *realtime.Dispatcher, amqpURL, restaurantID string, cs model.ChangeSet) {
	d.Publish(ctx, restaurantID, cs)
	if amqpURL == "" {
		return
	}
	ev := activityFromChangeSet(restaurantID, cs)
	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = queue.PublishActivity(pubCtx, amqpURL, ev)
	}()
}

// activityFromChangeSet summarizes a change set for the activity feed.  The
// acted entity is the last guest delta (the displaced guest, when present,
// precedes it), falling back to the first delta for table-only changes.
func activityFromChangeSet(restaurantID string, cs model.ChangeSet) queue.ActivityEvent {
	ev := queue.ActivityEvent{
		RestaurantID:  restaurantID,
		TransactionID: cs.TransactionID,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339),
	}
	for _, d := range cs.Deltas {
		if ev.EntityID == "" || d.Entity == model.EntityGuest {
			ev.EntityType = d.Entity
			ev.EntityID = d.EntityID
			ev.Action = d.Action
		}
		switch v := d.Data.(type) {
		case *model.Guest:
			ev.GuestName = v.Name
			ev.GuestStatus = v.Status
		case *model.Table:
			ev.TableNumber = v.TableNumber
		}
	}
	return ev
}
