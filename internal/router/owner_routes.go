package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-booking/internal/handler"    // venue handlers
	"github.com/iliyamo/venue-booking/internal/middleware" // JWT + role middlewares
	"github.com/iliyamo/venue-booking/internal/model"
)

// RegisterOwner registers OWNER-scoped venue writes under /api.
// All routes require a valid JWT and the OWNER role; ownership of the
// individual venue is checked by the catalog.
func RegisterOwner(e *echo.Echo, v *handler.VenueHandler, jwtSecret string) {
	g := e.Group(
		"/api",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleOwner),
	)

	// ---- Venues ----
	g.POST("/venues", v.Create)
	g.POST("/venueRegister", v.Create)
	g.PUT("/venues/:id", v.Update)
	g.PATCH("/venues/:id", v.Update) // same partial semantics as PUT
	g.DELETE("/venues/:id", v.Delete)
}
