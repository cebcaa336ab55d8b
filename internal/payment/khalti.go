package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Khalti talks to the Khalti ePayment API.
type Khalti struct {
	baseURL    string
	secretKey  string
	websiteURL string
	hc         *http.Client
	breaker    *CircuitBreaker
}

// NewKhalti returns a gateway for baseURL (for example
// https://a.khalti.com/api/v2).  All calls go through breaker.
func NewKhalti(baseURL, secretKey, websiteURL string, timeout time.Duration, breaker *CircuitBreaker) *Khalti {
	if breaker == nil {
		breaker = NewCircuitBreaker("khalti", DefaultBreakerSettings())
	}
	return &Khalti{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		websiteURL: websiteURL,
		hc:         &http.Client{Timeout: timeout},
		breaker:    breaker,
	}
}

type khaltiInitiateReq struct {
	ReturnURL         string    `json:"return_url"`
	WebsiteURL        string    `json:"website_url"`
	Amount            int64     `json:"amount"`
	PurchaseOrderID   string    `json:"purchase_order_id"`
	PurchaseOrderName string    `json:"purchase_order_name"`
	CustomerInfo      *Customer `json:"customer_info,omitempty"`
}

// Initiate posts to /epayment/initiate/.
func (k *Khalti) Initiate(ctx context.Context, req InitiateRequest) (Initiation, error) {
	var out Initiation
	err := k.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		out, err = k.initiate(ctx, req)
		return err
	})
	if errors.Is(err, ErrOpen) || errors.Is(err, ErrTooManyRequests) {
		return Initiation{}, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	return out, err
}

func (k *Khalti) initiate(ctx context.Context, req InitiateRequest) (Initiation, error) {
	body := khaltiInitiateReq{
		ReturnURL:         req.ReturnURL,
		WebsiteURL:        k.websiteURL,
		Amount:            MinorUnits(req.Amount),
		PurchaseOrderID:   req.PurchaseOrderID,
		PurchaseOrderName: req.PurchaseOrderName,
	}
	if req.Customer != (Customer{}) {
		c := req.Customer
		body.CustomerInfo = &c
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return Initiation{}, fmt.Errorf("khalti initiate: json.Marshal: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, k.baseURL+"/epayment/initiate/", bytes.NewReader(raw))
	if err != nil {
		return Initiation{}, fmt.Errorf("khalti initiate: http.NewRequestWithContext: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Key "+k.secretKey)

	resp, err := k.hc.Do(httpReq)
	if err != nil {
		return Initiation{}, fmt.Errorf("%w: khalti initiate: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		rbody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return Initiation{}, fmt.Errorf("%w: khalti initiate: status %d: %s", ErrProvider, resp.StatusCode, rbody)
	}

	var out Initiation
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Initiation{}, fmt.Errorf("%w: khalti initiate: json.Decode: %v", ErrProvider, err)
	}
	if out.Pidx == "" || out.PaymentURL == "" {
		return Initiation{}, fmt.Errorf("%w: khalti initiate: incomplete response", ErrProvider)
	}
	return out, nil
}
