package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/floorsync/floorsync/internal/realtime"
	"github.com/floorsync/floorsync/internal/service"
)

// TableHandler exposes floor-plan table creation.
type TableHandler struct {
	Seating    *service.SeatingService
	Dispatcher *realtime.Dispatcher
	AMQPURL    string

	// CanvasWidth/CanvasHeight are the fallback pixel extent for clients
	// that send pixel coordinates without declaring their canvas size.
	CanvasWidth  float64
	CanvasHeight float64
}

// NewTableHandler wires a TableHandler.
func NewTableHandler(seating *service.SeatingService, d *realtime.Dispatcher, amqpURL string, canvasW, canvasH float64) *TableHandler {
	return &TableHandler{Seating: seating, Dispatcher: d, AMQPURL: amqpURL, CanvasWidth: canvasW, CanvasHeight: canvasH}
}

// Create handles POST /v1/tables.  Position may arrive as pixel coordinates
// (with an optional canvas extent) or already normalized to the unit
// square; it is stored normalized either way.
func (h *TableHandler) Create(c echo.Context) error {
	var body struct {
		RestaurantID string  `json:"restaurant_id"`
		TableNumber  string  `json:"table_number"`
		Capacity     int     `json:"capacity"`
		PositionX    float64 `json:"position_x"`
		PositionY    float64 `json:"position_y"`
		CanvasWidth  float64 `json:"canvas_width"`
		CanvasHeight float64 `json:"canvas_height"`
		Shape        string  `json:"shape"`
		Section      *string `json:"section"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	body.RestaurantID = strings.TrimSpace(body.RestaurantID)
	body.TableNumber = strings.TrimSpace(body.TableNumber)
	if body.RestaurantID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "restaurant_id is required"})
	}
	if body.TableNumber == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "table_number is required"})
	}
	if body.Capacity < 1 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "capacity must be at least 1"})
	}
	extentW, extentH := body.CanvasWidth, body.CanvasHeight
	if extentW <= 0 || extentH <= 0 {
		extentW, extentH = h.CanvasWidth, h.CanvasHeight
	}
	cs, err := h.Seating.CreateTable(c.Request().Context(), body.RestaurantID, service.CreateTableParams{
		TableNumber: body.TableNumber,
		Capacity:    body.Capacity,
		X:           body.PositionX,
		Y:           body.PositionY,
		ExtentW:     extentW,
		ExtentH:     extentH,
		Shape:       body.Shape,
		Section:     body.Section,
	})
	if err != nil {
		return mutationError(c, err)
	}
	broadcast(c.Request().Context(), h.Dispatcher, h.AMQPURL, body.RestaurantID, cs)
	return c.JSON(http.StatusCreated, cs)
}
