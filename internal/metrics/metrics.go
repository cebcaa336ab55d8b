// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Booking admission outcomes.
const (
	OutcomeAdmitted = "admitted"
	OutcomeConflict = "conflict"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

var (
	BookingAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venue_booking_attempts_total",
			Help: "Booking admission attempts by outcome",
		},
		[]string{"outcome"},
	)

	Cancellations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "venue_booking_cancellations_total",
			Help: "Cancellation records appended",
		},
	)

	PaymentInitiations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venue_payment_initiations_total",
			Help: "Payment initiation calls by status",
		},
		[]string{"status"},
	)

	AdmissionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "venue_booking_admission_seconds",
			Help:    "Time spent holding the venue lock during admission",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// HTTPMiddleware observes request latency labelled by the route pattern
// (not the raw path) so label cardinality stays bounded.
func HTTPMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			httpDuration.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}
