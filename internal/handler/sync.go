package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/floorsync/floorsync/internal/service"
)

// SyncHandler exposes the reconciliation endpoints clients use to build or
// repair their local state.
type SyncHandler struct {
	Reconciler *service.Reconciler
}

// NewSyncHandler returns a SyncHandler over the given reconciler.
func NewSyncHandler(r *service.Reconciler) *SyncHandler {
	return &SyncHandler{Reconciler: r}
}

// Full handles GET /v1/sync/full?restaurant_id=... and returns every guest
// and table of the restaurant plus the server timestamp to pass back on the
// next delta request.
func (h *SyncHandler) Full(c echo.Context) error {
	restaurantID := c.QueryParam("restaurant_id")
	if restaurantID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "restaurant_id is required"})
	}
	res, err := h.Reconciler.FullSnapshot(c.Request().Context(), restaurantID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "snapshot failed"})
	}
	return c.JSON(http.StatusOK, res)
}

// Delta handles GET /v1/sync/delta?restaurant_id=...&since=... where since
// is an RFC 3339 timestamp previously returned by this API.  Entities
// modified at exactly the since instant are not repeated.
func (h *SyncHandler) Delta(c echo.Context) error {
	restaurantID := c.QueryParam("restaurant_id")
	if restaurantID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "restaurant_id is required"})
	}
	sinceRaw := c.QueryParam("since")
	if sinceRaw == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "since is required"})
	}
	since, err := time.Parse(time.RFC3339, sinceRaw)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "since must be an RFC 3339 timestamp"})
	}
	res, err := h.Reconciler.Delta(c.Request().Context(), restaurantID, since)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "delta query failed"})
	}
	return c.JSON(http.StatusOK, res)
}
