// Package http provides the HTTP handler layer for the session API.
package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/flight-search/flight-session-orchestrator/internal/adapter/http/middleware"
)

// RegisterRoutes registers all session API routes. The /api/v1 group resolves
// the session from the X-Session-ID header before any handler runs.
func RegisterRoutes(e *echo.Echo, h *SessionHandler) {
	RegisterRoutesWithMiddleware(e, h)
}

// RegisterRoutesWithMiddleware registers routes with extra middleware on the API group.
// The session middleware always runs last, closest to the handlers.
func RegisterRoutesWithMiddleware(e *echo.Echo, h *SessionHandler, mw ...echo.MiddlewareFunc) {
	// Health check endpoint (no version prefix, no session)
	e.GET("/health", h.Health)

	// API v1 group
	api := e.Group("/api/v1", append(mw, middleware.Session(h.sessions))...)

	api.GET("/subscriptions", h.ListSubscriptions)

	// Session group
	session := api.Group("/session")
	session.DELETE("", h.EndSession)
	session.PUT("/subscription", h.SelectSubscription)
	session.PUT("/route-selection", h.SelectRoute)

	routes := session.Group("/routes")
	routes.GET("/origins", h.ListOrigins)
	routes.GET("/destinations", h.ListDestinations)

	session.POST("/search", h.Search)
	session.GET("/search", h.GetSearch)
	session.DELETE("/search/error", h.DismissSearchError)

	session.PATCH("/filters", h.PatchFilters)
	session.POST("/filters/reset", h.ResetFilters)

	itinerary := session.Group("/itinerary")
	itinerary.GET("", h.GetItinerary)
	itinerary.PUT("/active-leg", h.SetActiveLeg)
	itinerary.POST("/select", h.SelectOption)

	quota := session.Group("/quota/:kind/:subscriptionId")
	quota.GET("", h.GetLedger)
	quota.POST("/pending", h.StageItem)
	quota.DELETE("/pending/:itemId", h.DiscardItem)
	quota.POST("/commit", h.CommitItems)
}

// RegisterMetrics mounts a Prometheus handler at path.
func RegisterMetrics(e *echo.Echo, path string, handler http.Handler) {
	e.GET(path, echo.WrapHandler(handler))
}
