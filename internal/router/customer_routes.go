package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-booking/internal/middleware"
	"github.com/iliyamo/venue-booking/internal/model"
)

// RegisterCustomer registers endpoints for any signed-in user under /api.
// Both roles may book; verification and deletion rules are enforced per
// booking by the ledger.
func RegisterCustomer(e *echo.Echo, h Handlers, jwtSecret string) {
	g := e.Group(
		"/api",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleOwner, model.RoleCustomer),
	)

	g.GET("/userDetails", h.Profiles.Me)

	// ---- Notes ----
	g.GET("/notes", h.Notes.List)
	g.POST("/notes", h.Notes.Create)
	g.DELETE("/notes/delete/:id", h.Notes.Delete)
	g.DELETE("/notes/:id", h.Notes.Delete)

	// ---- Bookings ----
	g.GET("/bookings", h.Bookings.List)
	g.POST("/bookings", h.Bookings.Create)
	g.GET("/bookings/:id", h.Bookings.Get)
	g.PUT("/bookings/:id", h.Bookings.Update)
	g.PATCH("/bookings/:id", h.Bookings.Update)
	g.DELETE("/bookings/:id", h.Bookings.Delete)
	g.POST("/bookings/:id/cancel", h.Bookings.Cancel)

	g.POST("/canceled-bookings", h.Cancellations.Create)

	// ---- Payments ----
	g.POST("/payments/initiate", h.Payments.Initiate)
}
