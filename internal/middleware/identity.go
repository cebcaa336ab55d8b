package middleware

// identity.go defines the context keys shared across middleware and
// handlers, plus helpers that read the authenticated user back out of the
// Echo context.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-booking/internal/utils"
)

// Context keys set by JWTAuth and OptionalJWT.
const (
	KeyUserID   = "user_id"  // uint64
	KeyUsername = "username" // string
	KeyRole     = "role"     // string
)

func setIdentity(c echo.Context, id utils.Identity) {
	c.Set(KeyUserID, id.UserID)
	c.Set(KeyUsername, id.Username)
	c.Set(KeyRole, id.Role)
}

// CurrentIdentity returns the identity stored by the JWT middleware.
func CurrentIdentity(c echo.Context) (utils.Identity, bool) {
	uid, ok := c.Get(KeyUserID).(uint64)
	if !ok || uid == 0 {
		return utils.Identity{}, false
	}
	username, _ := c.Get(KeyUsername).(string)
	role, _ := c.Get(KeyRole).(string)
	return utils.Identity{UserID: uid, Username: username, Role: role}, true
}

// subject is the rate-limit key component for the current user, "anon"
// when nobody is authenticated.
func subject(c echo.Context) string {
	if id, ok := CurrentIdentity(c); ok {
		return strconv.FormatUint(id.UserID, 10)
	}
	return "anon"
}
