package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/floorsync/floorsync/internal/realtime"
)

// LiveHandler upgrades dashboard connections to websockets and attaches
// them to the dispatcher.
type LiveHandler struct {
	Dispatcher *realtime.Dispatcher
	QueueSize  int
	IdleWindow time.Duration
	Logger     zerolog.Logger

	upgrader websocket.Upgrader
}

// NewLiveHandler wires a LiveHandler.  Dashboards are served from arbitrary
// origins (tablets on the floor, the host stand, the manager's laptop), so
// the upgrader does not enforce an origin check.
func NewLiveHandler(d *realtime.Dispatcher, queueSize int, idleWindow time.Duration, logger zerolog.Logger) *LiveHandler {
	return &LiveHandler{
		Dispatcher: d,
		QueueSize:  queueSize,
		IdleWindow: idleWindow,
		Logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Live handles GET /v1/tenants/:id/live.  After the upgrade the connection
// receives a connection_established ack and then every event for its
// restaurant until it closes, goes silent, or falls too far behind.
func (h *LiveHandler) Live(c echo.Context) error {
	restaurantID := c.Param("id")
	if restaurantID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "restaurant id is required"})
	}
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		return nil
	}
	client := realtime.NewClient(conn, restaurantID, h.QueueSize, h.IdleWindow, h.Logger)
	if err := h.Dispatcher.Attach(client); err != nil {
		h.Logger.Error().Err(err).Str("restaurant_id", restaurantID).Msg("attach failed")
		client.Close()
		return nil
	}
	client.SendEvent(realtime.Event{
		Type:         realtime.TypeConnectionEstablished,
		RestaurantID: restaurantID,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	})
	h.Logger.Info().Str("restaurant_id", restaurantID).Msg("dashboard connected")
	client.Run(func() {
		h.Dispatcher.Detach(client)
		h.Logger.Info().Str("restaurant_id", restaurantID).Msg("dashboard disconnected")
	})
	return nil
}
