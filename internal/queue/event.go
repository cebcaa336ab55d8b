// Package queue defines message payloads exchanged over the message broker
// together with the publisher and the background consumer.
package queue

// Queue names.  Both are durable; messages are persistent.
const (
	BookingCreatedQueue   = "booking.created"
	BookingCancelledQueue = "booking.cancelled"
)

// BookingEvent is published when a booking is admitted or a cancellation is
// recorded.  It carries enough information for downstream consumers to
// log, notify, or trigger analytics without querying the primary database.
// BookingID is zero for cancellations recorded without a live booking.
type BookingEvent struct {
	BookingID  uint64 `json:"booking_id,omitempty"`
	UserID     uint64 `json:"user_id"`
	UserName   string `json:"user_name,omitempty"`
	VenueID    uint64 `json:"venue_id,omitempty"`
	VenueName  string `json:"venue_name"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	Reason     string `json:"reason,omitempty"`
	OccurredAt string `json:"occurred_at"`
}
