package service

import (
	"context"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/venue-booking/internal/model"
	"github.com/iliyamo/venue-booking/internal/queue"
)

// EventPublisher delivers booking events.  A nil publisher disables events.
type EventPublisher interface {
	Publish(ctx context.Context, queueName string, ev queue.BookingEvent) error
}

const publishTimeout = 3 * time.Second

// publish sends ev after the database work has committed.  Failures are
// logged and otherwise ignored.
func publish(ctx context.Context, p EventPublisher, logger *log.Logger, queueName string, ev queue.BookingEvent) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.Publish(ctx, queueName, ev); err != nil {
		logger.Warnf("publish %s failed: %v", queueName, err)
	}
}

func bookingEvent(b model.Booking, at time.Time) queue.BookingEvent {
	return queue.BookingEvent{
		BookingID:  b.ID,
		UserID:     b.UserID,
		VenueID:    b.VenueID,
		VenueName:  b.VenueName,
		StartDate:  b.StartDate.String(),
		EndDate:    b.EndDate.String(),
		OccurredAt: at.UTC().Format(time.RFC3339),
	}
}

func cancellationEvent(c model.CanceledBooking, bookingID uint64, at time.Time) queue.BookingEvent {
	return queue.BookingEvent{
		BookingID:  bookingID,
		UserID:     c.UserID,
		UserName:   c.UserName,
		VenueName:  c.VenueName,
		StartDate:  c.StartDate.String(),
		EndDate:    c.EndDate.String(),
		Reason:     c.Reason,
		OccurredAt: at.UTC().Format(time.RFC3339),
	}
}

func defaultLogger(l *log.Logger) *log.Logger {
	if l != nil {
		return l
	}
	return log.New("service")
}
