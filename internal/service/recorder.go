package service

import (
	"context"
	"strings"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/venue-booking/internal/metrics"
	"github.com/iliyamo/venue-booking/internal/model"
	"github.com/iliyamo/venue-booking/internal/queue"
)

// CancellationStore is the append-only cancellation log.
type CancellationStore interface {
	Create(ctx context.Context, c *model.CanceledBooking) error
	ListByUser(ctx context.Context, userID uint64) ([]model.CanceledBooking, error)
	ListAll(ctx context.Context) ([]model.CanceledBooking, error)
}

// BookingReader looks bookings up by id.
type BookingReader interface {
	GetByID(ctx context.Context, id uint64) (model.Booking, error)
}

// Recorder appends cancellation records.  A record copies what it needs
// and never references the booking it came from.
type Recorder struct {
	log      CancellationStore
	bookings BookingReader
	venues   VenueReader
	events   EventPublisher
	logger   *log.Logger
	now      func() time.Time
}

func NewRecorder(store CancellationStore, bookings BookingReader, venues VenueReader, events EventPublisher, logger *log.Logger) *Recorder {
	return &Recorder{
		log:      store,
		bookings: bookings,
		venues:   venues,
		events:   events,
		logger:   defaultLogger(logger),
		now:      time.Now,
	}
}

// Record appends c as given.  No lookup of the source booking happens.
func (r *Recorder) Record(ctx context.Context, c model.CanceledBooking) (model.CanceledBooking, error) {
	return r.record(ctx, c, 0)
}

func (r *Recorder) record(ctx context.Context, c model.CanceledBooking, bookingID uint64) (model.CanceledBooking, error) {
	c.VenueName = strings.TrimSpace(c.VenueName)
	c.VenueAddress = strings.TrimSpace(c.VenueAddress)
	c.UserName = strings.TrimSpace(c.UserName)
	c.Reason = strings.TrimSpace(c.Reason)

	var missing []string
	if c.VenueName == "" {
		missing = append(missing, "venue_name")
	}
	if c.UserName == "" {
		missing = append(missing, "user_name")
	}
	if c.Reason == "" {
		missing = append(missing, "reason")
	}
	if len(missing) > 0 {
		return model.CanceledBooking{}, validation("%s required", strings.Join(missing, ", "))
	}
	if _, err := dateRange(c.StartDate, c.EndDate); err != nil {
		return model.CanceledBooking{}, err
	}

	if err := r.log.Create(ctx, &c); err != nil {
		return model.CanceledBooking{}, err
	}
	metrics.Cancellations.Inc()
	publish(ctx, r.events, r.logger, queue.BookingCancelledQueue, cancellationEvent(c, bookingID, r.now()))
	return c, nil
}

// CancelBooking derives a record from a live booking and appends it.  Only
// the booking's user may cancel it.  The booking itself is left in place.
func (r *Recorder) CancelBooking(ctx context.Context, caller Caller, bookingID uint64, reason string) (model.CanceledBooking, error) {
	b, err := r.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return model.CanceledBooking{}, fromRepo(err, "booking")
	}
	if b.UserID != caller.UserID {
		return model.CanceledBooking{}, newError(ErrForbidden, "only the booking's user can cancel it")
	}
	v, err := r.venues.GetByID(ctx, b.VenueID)
	if err != nil {
		return model.CanceledBooking{}, fromRepo(err, "venue")
	}
	return r.record(ctx, model.CanceledBooking{
		VenueName:    v.Name,
		VenueAddress: v.Address,
		UserID:       caller.UserID,
		UserName:     caller.Username,
		StartDate:    b.StartDate,
		EndDate:      b.EndDate,
		Reason:       reason,
	}, b.ID)
}

func (r *Recorder) ListForUser(ctx context.Context, userID uint64) ([]model.CanceledBooking, error) {
	return r.log.ListByUser(ctx, userID)
}

func (r *Recorder) ListAll(ctx context.Context) ([]model.CanceledBooking, error) {
	return r.log.ListAll(ctx)
}
