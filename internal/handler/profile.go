package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-booking/internal/model"
	"github.com/iliyamo/venue-booking/internal/repository"
)

// ProfileStore persists public profiles keyed by username.
type ProfileStore interface {
	Create(ctx context.Context, p *model.Profile) error
	GetByUsername(ctx context.Context, username string) (model.Profile, error)
}

// ProfileHandler serves profile registration and lookup.
type ProfileHandler struct {
	Profiles ProfileStore
}

func NewProfileHandler(p ProfileStore) *ProfileHandler {
	return &ProfileHandler{Profiles: p}
}

type profileBody struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	Address      string `json:"address"`
	PhoneNumber  string `json:"phoneNumber"`
	IsVenueOwner bool   `json:"is_venue_owner"`
}

func (b profileBody) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.Username, validation.Required, validation.Length(1, 150)),
		validation.Field(&b.Email, validation.Required, is.EmailFormat),
		validation.Field(&b.PhoneNumber, validation.Length(0, 32)),
	)
}

func toProfileBody(p model.Profile) profileBody {
	return profileBody{
		Username:     p.Username,
		Email:        p.Email,
		Address:      p.Address,
		PhoneNumber:  p.PhoneNumber,
		IsVenueOwner: p.IsVenueOwner,
	}
}

// Register handles POST /api/register.
func (h *ProfileHandler) Register(c echo.Context) error {
	var req profileBody
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	p := model.Profile{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Address:      strings.TrimSpace(req.Address),
		PhoneNumber:  strings.TrimSpace(req.PhoneNumber),
		IsVenueOwner: req.IsVenueOwner,
	}
	if err := toProfileBody(p).Validate(); err != nil {
		return invalid(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Profiles.Create(ctx, &p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "username already registered"})
		}
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toProfileBody(p))
}

// Get handles GET /api/userProfiles/:username.
func (h *ProfileHandler) Get(c echo.Context) error {
	username := strings.TrimSpace(c.Param("username"))
	if username == "" {
		return badRequest(c, "username required")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Profiles.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Unable to retrieve profile for username " + username})
		}
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toProfileBody(p))
}

// Me handles GET /api/userDetails: the caller's profile, found by the
// username claim of the access token.
func (h *ProfileHandler) Me(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok || caller.Username == "" {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Profiles.GetByUsername(ctx, caller.Username)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toProfileBody(p))
}
