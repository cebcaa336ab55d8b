// Package payment starts hosted checkouts with the payment provider.  Only
// initiation is implemented; the provider redirects the customer back to
// ReturnURL once paid.
package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrProvider wraps every failure reported by, or on the way to, the
// provider.  Breaker rejections wrap it too.
var ErrProvider = errors.New("payment provider error")

// InitiateRequest describes one checkout.  Amount is in major units; the
// gateway converts it to the provider's minor unit.
type InitiateRequest struct {
	ReturnURL         string
	PurchaseOrderID   string
	PurchaseOrderName string
	Amount            decimal.Decimal
	Customer          Customer
}

type Customer struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Initiation is the provider's answer: the payment id and where to send
// the customer.
type Initiation struct {
	Pidx       string `json:"pidx"`
	PaymentURL string `json:"payment_url"`
	ExpiresAt  string `json:"expires_at"`
}

type Gateway interface {
	Initiate(ctx context.Context, req InitiateRequest) (Initiation, error)
}

// MinorUnits converts a major-unit amount to the integer minor unit
// (paisa, cents) the provider expects.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
