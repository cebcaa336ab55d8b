package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"                             // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus/promhttp" // scrape endpoint

	"github.com/iliyamo/venue-booking/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/venue-booking/internal/middleware" // import middleware for JWT authentication
)

// Handlers groups every HTTP handler the API exposes.
type Handlers struct {
	Auth          *handler.AuthHandler
	Venues        *handler.VenueHandler
	Bookings      *handler.BookingHandler
	Cancellations *handler.CancellationHandler
	Profiles      *handler.ProfileHandler
	Notes         *handler.NoteHandler
	Payments      *handler.PaymentHandler
}

// RegisterRoutes registers operational routes that sit outside /api: the
// health check used by load balancers and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers all authentication-related routes.  Register,
// login, refresh and logout are public; /api/me needs a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/api/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// rotates the refresh token
	g.POST("/refresh", a.Refresh)
	// new access token only; the refresh token stays valid
	g.POST("/refresh-access", a.RefreshAccess)
	// logout accepts either a refresh_token body or a bearer access token
	g.POST("/logout", a.Logout)

	e.GET("/api/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterPublic registers unauthenticated read endpoints.  Venue reads go
// through the response cache; cache is a no-op middleware when caching is
// disabled.
func RegisterPublic(e *echo.Echo, h Handlers, cache echo.MiddlewareFunc) {
	// ---- Venues ----
	e.GET("/api/venues", h.Venues.List, cache)
	e.GET("/api/venues/:id", h.Venues.Get, cache)
	e.GET("/api/venues/id/:id", h.Venues.Get, cache)
	e.GET("/api/venues/owner/:ownerid", h.Venues.ListByOwner, cache)
	// singular aliases used by older clients
	e.GET("/api/venue", h.Venues.List, cache)
	e.GET("/api/venue/:id", h.Venues.Get, cache)
	e.GET("/api/venue/owner/:ownerid", h.Venues.ListByOwner, cache)

	// ---- Bookings and cancellations ----
	e.GET("/api/userbookings/:user_id", h.Bookings.ListForUser)
	e.GET("/api/canceled-bookings", h.Cancellations.List)
	e.GET("/api/canceled-bookings/:user_id", h.Cancellations.ListForUser)

	// ---- Profiles ----
	e.POST("/api/register", h.Profiles.Register)
	e.GET("/api/userProfiles/:username", h.Profiles.Get)
}
