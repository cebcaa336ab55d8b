package handler

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-booking/internal/model"
	"github.com/iliyamo/venue-booking/internal/service"
)

// PaymentHandler starts provider checkouts.
type PaymentHandler struct {
	Payments *service.Payments
}

func NewPaymentHandler(p *service.Payments) *PaymentHandler {
	return &PaymentHandler{Payments: p}
}

type initiateReq struct {
	VenueID   uint64     `json:"venue"`
	StartDate model.Date `json:"start_date"`
	EndDate   model.Date `json:"end_date"`
	ReturnURL string     `json:"return_url"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
}

func (r initiateReq) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.VenueID, validation.Required),
		validation.Field(&r.ReturnURL, is.URL),
		validation.Field(&r.Email, is.EmailFormat),
	)
}

type initiateResp struct {
	Pidx            string `json:"pidx"`
	PaymentURL      string `json:"payment_url"`
	ExpiresAt       string `json:"expires_at"`
	PurchaseOrderID string `json:"purchase_order_id"`
	Amount          string `json:"amount"`
	Days            int    `json:"days"`
}

// Initiate handles POST /api/payments/initiate.  A range that is already
// booked fails before the provider is contacted.
func (h *PaymentHandler) Initiate(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	var req initiateReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := req.Validate(); err != nil {
		return invalid(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Payments.Initiate(ctx, caller, service.PaymentRequest{
		VenueID:   req.VenueID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		ReturnURL: req.ReturnURL,
		Email:     req.Email,
		Phone:     req.Phone,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, initiateResp{
		Pidx:            res.Pidx,
		PaymentURL:      res.PaymentURL,
		ExpiresAt:       res.ExpiresAt,
		PurchaseOrderID: res.PurchaseOrderID,
		Amount:          res.Amount.StringFixed(2),
		Days:            res.Days,
	})
}
