package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-booking/internal/model"
	"github.com/iliyamo/venue-booking/internal/repository"
	"github.com/iliyamo/venue-booking/internal/service"
)

// BookingHandler exposes the booking ledger.  Every route except the
// per-user listing requires a bearer token.
type BookingHandler struct {
	Ledger   *service.Ledger
	Recorder *service.Recorder
}

func NewBookingHandler(ledger *service.Ledger, recorder *service.Recorder) *BookingHandler {
	if ledger == nil || recorder == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{Ledger: ledger, Recorder: recorder}
}

// bookingReq is the POST /api/bookings body.  The booking always belongs
// to the caller; a "user" field in the body is ignored.
type bookingReq struct {
	VenueID   uint64     `json:"venue"`
	StartDate model.Date `json:"start_date"`
	EndDate   model.Date `json:"end_date"`
}

type verifyReq struct {
	Verified *bool `json:"verified"`
}

type cancelReq struct {
	Reason string `json:"reason"`
}

type bookingResp struct {
	ID        uint64     `json:"id"`
	UserID    uint64     `json:"user"`
	VenueID   uint64     `json:"venue"`
	VenueName string     `json:"venue_name,omitempty"`
	StartDate model.Date `json:"start_date"`
	EndDate   model.Date `json:"end_date"`
	Verified  bool       `json:"verified"`
	CreatedAt time.Time  `json:"created_at"`
}

func toBookingResp(b model.Booking) bookingResp {
	return bookingResp{
		ID:        b.ID,
		UserID:    b.UserID,
		VenueID:   b.VenueID,
		VenueName: b.VenueName,
		StartDate: b.StartDate,
		EndDate:   b.EndDate,
		Verified:  b.Verified,
		CreatedAt: b.CreatedAt,
	}
}

func toBookingResps(bs []model.Booking) []bookingResp {
	out := make([]bookingResp, 0, len(bs))
	for _, b := range bs {
		out = append(out, toBookingResp(b))
	}
	return out
}

// Create handles POST /api/bookings.
func (h *BookingHandler) Create(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	var req bookingReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	b, err := h.Ledger.TryReserve(ctx, service.ReserveRequest{
		VenueID:   req.VenueID,
		UserID:    caller.UserID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toBookingResp(b))
}

// List handles GET /api/bookings with optional ?venue= and ?user= filters.
func (h *BookingHandler) List(c echo.Context) error {
	venueID, ok := queryID(c, "venue")
	if !ok {
		return badRequest(c, "invalid venue")
	}
	userID, ok := queryID(c, "user")
	if !ok {
		return badRequest(c, "invalid user")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	bs, err := h.Ledger.List(ctx, repository.BookingFilter{VenueID: venueID, UserID: userID})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingResps(bs))
}

// ListForUser handles GET /api/userbookings/:user_id.
func (h *BookingHandler) ListForUser(c echo.Context) error {
	userID, ok := parseID(c, "user_id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	bs, err := h.Ledger.List(ctx, repository.BookingFilter{UserID: userID})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingResps(bs))
}

// Get handles GET /api/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	b, err := h.Ledger.Get(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// Update handles PUT and PATCH /api/bookings/:id.  Only the verified flag
// can change; dates and venue are fixed once admitted.
func (h *BookingHandler) Update(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Verified == nil {
		return badRequest(c, "verified is required")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	b, err := h.Ledger.SetVerified(ctx, caller, id, *req.Verified)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// Delete handles DELETE /api/bookings/:id.
func (h *BookingHandler) Delete(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Ledger.Delete(ctx, caller, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Cancel handles POST /api/bookings/:id/cancel.  It records the
// cancellation; the booking itself stays until it is deleted.
func (h *BookingHandler) Cancel(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req cancelReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	rec, err := h.Recorder.CancelBooking(ctx, caller, id, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toCanceledResp(rec))
}
