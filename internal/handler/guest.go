package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/floorsync/floorsync/internal/realtime"
	"github.com/floorsync/floorsync/internal/service"
)

// GuestHandler exposes guest creation and the transition endpoint that
// drives every status and seating change.
type GuestHandler struct {
	Seating    *service.SeatingService
	Dispatcher *realtime.Dispatcher
	AMQPURL    string
}

// NewGuestHandler wires a GuestHandler.
func NewGuestHandler(seating *service.SeatingService, d *realtime.Dispatcher, amqpURL string) *GuestHandler {
	return &GuestHandler{Seating: seating, Dispatcher: d, AMQPURL: amqpURL}
}

// Create handles POST /v1/guests and adds a party to the waitlist.
func (h *GuestHandler) Create(c echo.Context) error {
	var body struct {
		RestaurantID string  `json:"restaurant_id"`
		Name         string  `json:"name"`
		PartySize    int     `json:"party_size"`
		Phone        *string `json:"phone"`
		Notes        *string `json:"notes"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	body.RestaurantID = strings.TrimSpace(body.RestaurantID)
	body.Name = strings.TrimSpace(body.Name)
	if body.RestaurantID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "restaurant_id is required"})
	}
	if body.Name == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "name is required"})
	}
	if body.PartySize < 1 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "party_size must be at least 1"})
	}
	cs, err := h.Seating.CreateGuest(c.Request().Context(), body.RestaurantID, service.CreateGuestParams{
		Name:      body.Name,
		PartySize: body.PartySize,
		Phone:     body.Phone,
		Notes:     body.Notes,
	})
	if err != nil {
		return mutationError(c, err)
	}
	broadcast(c.Request().Context(), h.Dispatcher, h.AMQPURL, body.RestaurantID, cs)
	return c.JSON(http.StatusCreated, cs)
}

// transitionBody keeps table_id as raw JSON because its three shapes mean
// three different things: absent leaves the assignment alone, null (or "")
// clears it, and a string assigns that table.
type transitionBody struct {
	RestaurantID string          `json:"restaurant_id"`
	Status       *string         `json:"status"`
	TableID      json.RawMessage `json:"table_id"`
}

// Transition handles POST /v1/guests/:id/transition.  One request can carry
// a status change, a table change, or both; the service folds them into a
// single transaction and the response is the resulting change set.
func (h *GuestHandler) Transition(c echo.Context) error {
	guestID := c.Param("id")
	var body transitionBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if body.RestaurantID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "restaurant_id is required"})
	}
	if body.Status == nil && len(body.TableID) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "nothing to change"})
	}

	req := service.TransitionRequest{Status: body.Status}
	if len(body.TableID) > 0 {
		req.HasTable = true
		var tid *string
		if err := json.Unmarshal(body.TableID, &tid); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "table_id must be a string or null"})
		}
		req.TableID = tid
	}

	cs, err := h.Seating.Transition(c.Request().Context(), body.RestaurantID, guestID, req)
	if err != nil {
		return mutationError(c, err)
	}
	broadcast(c.Request().Context(), h.Dispatcher, h.AMQPURL, body.RestaurantID, cs)
	return c.JSON(http.StatusOK, cs)
}
