// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/floorsync/floorsync/internal/handler"
)

// Handlers bundles every handler the API mounts.
type Handlers struct {
	Sync  *handler.SyncHandler
	Guest *handler.GuestHandler
	Table *handler.TableHandler
	Live  *handler.LiveHandler
}

// RegisterRoutes registers all routes on the provided Echo instance.
// rateLimit is applied to mutation endpoints only: sync reads must stay
// cheap to retry and the websocket upgrade is long-lived, so neither
// should burn tokens.
func RegisterRoutes(e *echo.Echo, h Handlers, rateLimit echo.MiddlewareFunc) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/v1")

	v1.GET("/sync/full", h.Sync.Full)
	v1.GET("/sync/delta", h.Sync.Delta)

	v1.GET("/tenants/:id/live", h.Live.Live)

	mut := e.Group("/v1", rateLimit)
	mut.POST("/guests", h.Guest.Create)
	mut.POST("/guests/:id/transition", h.Guest.Transition)
	mut.POST("/tables", h.Table.Create)
}
