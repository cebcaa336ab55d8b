package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/venue-booking/internal/metrics"
	"github.com/iliyamo/venue-booking/internal/model"
	"github.com/iliyamo/venue-booking/internal/payment"
)

// PaymentRequest asks for a checkout covering the given dates.
type PaymentRequest struct {
	VenueID   uint64
	StartDate model.Date
	EndDate   model.Date
	ReturnURL string
	Email     string
	Phone     string
}

// PaymentResult is what the client needs to redirect the customer.
type PaymentResult struct {
	payment.Initiation
	PurchaseOrderID string
	Amount          decimal.Decimal
	Days            int
}

// Payments starts provider checkouts for bookable ranges.  The booking is
// created separately once the customer returns.
type Payments struct {
	ledger    *Ledger
	gateway   payment.Gateway
	returnURL string
	logger    *log.Logger
	newID     func() string
}

// NewPayments returns a payment service.  A nil gateway makes every
// Initiate fail with ErrUpstream.
func NewPayments(ledger *Ledger, gateway payment.Gateway, defaultReturnURL string, logger *log.Logger) *Payments {
	return &Payments{
		ledger:    ledger,
		gateway:   gateway,
		returnURL: defaultReturnURL,
		logger:    defaultLogger(logger),
		newID:     uuid.NewString,
	}
}

// Initiate checks availability and asks the provider for a payment URL.
// The amount is the number of booked days, both ends included, times the
// venue's min_price.
func (p *Payments) Initiate(ctx context.Context, caller Caller, req PaymentRequest) (PaymentResult, error) {
	if p.gateway == nil {
		return PaymentResult{}, newError(ErrUpstream, "payments are not configured")
	}
	returnURL := strings.TrimSpace(req.ReturnURL)
	if returnURL == "" {
		returnURL = p.returnURL
	}
	if returnURL == "" {
		return PaymentResult{}, validation("return_url is required")
	}

	v, rng, err := p.ledger.CheckAvailability(ctx, req.VenueID, req.StartDate, req.EndDate)
	if err != nil {
		if IsKind(err, ErrConflict) {
			metrics.PaymentInitiations.WithLabelValues("conflict").Inc()
		}
		return PaymentResult{}, err
	}
	days := rng.Days()
	amount := v.MinPrice.Mul(decimal.NewFromInt(int64(days)))
	if !amount.IsPositive() {
		return PaymentResult{}, validation("venue has no price to charge")
	}

	orderID := p.newID()
	init, err := p.gateway.Initiate(ctx, payment.InitiateRequest{
		ReturnURL:         returnURL,
		PurchaseOrderID:   orderID,
		PurchaseOrderName: fmt.Sprintf("%s %s", v.Name, rng),
		Amount:            amount,
		Customer:          payment.Customer{Name: caller.Username, Email: req.Email, Phone: req.Phone},
	})
	if err != nil {
		metrics.PaymentInitiations.WithLabelValues("failed").Inc()
		p.logger.Warnf("payment initiation for venue %d failed: %v", v.ID, err)
		return PaymentResult{}, &Error{Kind: ErrUpstream, Message: "payment provider rejected the request", Err: err}
	}
	metrics.PaymentInitiations.WithLabelValues("initiated").Inc()
	return PaymentResult{Initiation: init, PurchaseOrderID: orderID, Amount: amount, Days: days}, nil
}
