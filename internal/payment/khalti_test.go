package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKhaltiInitiate(t *testing.T) {
	var got khaltiInitiateReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/epayment/initiate/", r.URL.Path)
		assert.Equal(t, "Key test_secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"pidx":        "bZQLD9wRVWo4CdESSfuSsB",
			"payment_url": "https://pay.example/?pidx=bZQLD9wRVWo4CdESSfuSsB",
			"expires_at":  "2025-06-01T12:00:00+05:45",
			"expires_in":  1800,
		})
	}))
	defer srv.Close()

	k := NewKhalti(srv.URL+"/", "test_secret", "https://venues.example", time.Second, nil)
	out, err := k.Initiate(context.Background(), InitiateRequest{
		ReturnURL:         "https://venues.example/payment-success",
		PurchaseOrderID:   "po-1",
		PurchaseOrderName: "Lake Hall 2025-06-01..2025-06-03",
		Amount:            decimal.RequireFromString("4500.50"),
	})

	require.NoError(t, err)
	assert.Equal(t, "bZQLD9wRVWo4CdESSfuSsB", out.Pidx)
	assert.Equal(t, "https://pay.example/?pidx=bZQLD9wRVWo4CdESSfuSsB", out.PaymentURL)
	assert.Equal(t, int64(450050), got.Amount)
	assert.Equal(t, "https://venues.example", got.WebsiteURL)
	assert.Equal(t, "po-1", got.PurchaseOrderID)
	assert.Nil(t, got.CustomerInfo)
}

func TestKhaltiInitiate_ProviderErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"bad status", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"detail":"Invalid token."}`, http.StatusUnauthorized)
		}},
		{"bad body", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		}},
		{"missing pidx", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"payment_url":"https://pay.example"}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			k := NewKhalti(srv.URL, "k", "", time.Second, nil)
			_, err := k.Initiate(context.Background(), InitiateRequest{Amount: decimal.NewFromInt(1)})
			assert.ErrorIs(t, err, ErrProvider)
		})
	}
}

func TestKhaltiInitiate_BreakerFailsFast(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cb := NewCircuitBreaker("khalti", BreakerSettings{MinRequests: 2, MaxHalfOpen: 1, Timeout: time.Minute, FailureRatio: 0.5})
	k := NewKhalti(srv.URL, "k", "", time.Second, cb)
	for i := 0; i < 2; i++ {
		_, err := k.Initiate(context.Background(), InitiateRequest{})
		assert.ErrorIs(t, err, ErrProvider)
	}
	require.Equal(t, StateOpen, cb.State())

	_, err := k.Initiate(context.Background(), InitiateRequest{})
	assert.ErrorIs(t, err, ErrProvider)
	assert.Equal(t, int32(2), calls.Load(), "open breaker must not reach the provider")
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(150000), MinorUnits(decimal.NewFromInt(1500)))
	assert.Equal(t, int64(1999), MinorUnits(decimal.RequireFromString("19.985")))
}
