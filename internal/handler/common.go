package handler // handler defines http handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-booking/internal/middleware"
	"github.com/iliyamo/venue-booking/internal/repository"
	"github.com/iliyamo/venue-booking/internal/service"
)

// requestTimeout bounds the storage work of a single request.
const requestTimeout = 5 * time.Second

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// callerFrom builds the service caller from the identity stored by JWTAuth.
func callerFrom(c echo.Context) (service.Caller, bool) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return service.Caller{}, false
	}
	return service.Caller{UserID: id.UserID, Username: id.Username, Role: id.Role}, true
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// invalid answers a failed request validation.  Field errors are keyed by
// their JSON name.
func invalid(c echo.Context, err error) error {
	var errs validation.Errors
	if errors.As(err, &errs) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": errs.Error(), "fields": errs})
	}
	return badRequest(c, err.Error())
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	return id, err == nil && id > 0
}

// queryID reads an optional numeric query parameter.  A missing value
// yields 0; a malformed one yields ok=false.
func queryID(c echo.Context, name string) (id uint64, ok bool) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	return id, err == nil && id > 0
}

// respondError maps classified errors to a status and a client-safe
// message.  Unclassified errors are logged and answered with a generic 500.
func respondError(c echo.Context, err error) error {
	var se *service.Error
	if errors.As(err, &se) {
		status := http.StatusInternalServerError
		switch se.Kind {
		case service.ErrValidation, service.ErrConflict, service.ErrUpstream:
			status = http.StatusBadRequest
		case service.ErrNotFound:
			status = http.StatusNotFound
		case service.ErrForbidden:
			status = http.StatusForbidden
		case service.ErrInUse:
			status = http.StatusConflict
		}
		if se.Err != nil {
			c.Logger().Warnf("%s %s: %v", c.Request().Method, c.Path(), se.Err)
		}
		return c.JSON(status, echo.Map{"error": se.Message})
	}

	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrDuplicate):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already exists"})
	case errors.Is(err, context.DeadlineExceeded):
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "request timed out"})
	}
	c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
}
