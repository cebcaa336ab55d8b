package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-booking/internal/model"
	"github.com/iliyamo/venue-booking/internal/service"
)

// CancellationHandler serves the cancellation log.
type CancellationHandler struct {
	Recorder *service.Recorder
}

func NewCancellationHandler(recorder *service.Recorder) *CancellationHandler {
	return &CancellationHandler{Recorder: recorder}
}

type canceledReq struct {
	VenueName    string     `json:"venue_name"`
	VenueAddress string     `json:"venue_address"`
	UserID       uint64     `json:"user_id"`
	UserName     string     `json:"user_name"`
	StartDate    model.Date `json:"start_date"`
	EndDate      model.Date `json:"end_date"`
	Reason       string     `json:"reason"`
}

type canceledResp struct {
	ID           uint64     `json:"id"`
	VenueName    string     `json:"venue_name"`
	VenueAddress string     `json:"venue_address"`
	UserID       uint64     `json:"user_id"`
	UserName     string     `json:"user_name"`
	StartDate    model.Date `json:"start_date"`
	EndDate      model.Date `json:"end_date"`
	Reason       string     `json:"reason"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toCanceledResp(r model.CanceledBooking) canceledResp {
	return canceledResp{
		ID:           r.ID,
		VenueName:    r.VenueName,
		VenueAddress: r.VenueAddress,
		UserID:       r.UserID,
		UserName:     r.UserName,
		StartDate:    r.StartDate,
		EndDate:      r.EndDate,
		Reason:       r.Reason,
		CreatedAt:    r.CreatedAt,
	}
}

func toCanceledResps(rs []model.CanceledBooking) []canceledResp {
	out := make([]canceledResp, 0, len(rs))
	for _, r := range rs {
		out = append(out, toCanceledResp(r))
	}
	return out
}

// Create handles POST /api/canceled-bookings: the record is stored as sent.
// A missing user_id defaults to the caller.
func (h *CancellationHandler) Create(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	var req canceledReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.UserID == 0 {
		req.UserID = caller.UserID
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	rec, err := h.Recorder.Record(ctx, model.CanceledBooking{
		VenueName:    req.VenueName,
		VenueAddress: req.VenueAddress,
		UserID:       req.UserID,
		UserName:     req.UserName,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Reason:       req.Reason,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toCanceledResp(rec))
}

// List handles GET /api/canceled-bookings.
func (h *CancellationHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	rs, err := h.Recorder.ListAll(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toCanceledResps(rs))
}

// ListForUser handles GET /api/canceled-bookings/:user_id.
func (h *CancellationHandler) ListForUser(c echo.Context) error {
	userID, ok := parseID(c, "user_id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	rs, err := h.Recorder.ListForUser(ctx, userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toCanceledResps(rs))
}
