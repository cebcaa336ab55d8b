package service

import (
	"context"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/venue-booking/internal/metrics"
	"github.com/iliyamo/venue-booking/internal/model"
	"github.com/iliyamo/venue-booking/internal/queue"
	"github.com/iliyamo/venue-booking/internal/repository"
)

// BookingStore is the persistence the ledger needs.  It is satisfied by
// *repository.BookingRepo and *memory.Bookings.
type BookingStore interface {
	LockVenue(ctx context.Context, venueID uint64) (repository.VenueLock, error)
	GetByID(ctx context.Context, id uint64) (model.Booking, error)
	List(ctx context.Context, f repository.BookingFilter) ([]model.Booking, error)
	Ranges(ctx context.Context, venueIDs ...uint64) (map[uint64][]model.DateRange, error)
	SetVerified(ctx context.Context, id uint64, verified bool) error
	Delete(ctx context.Context, id uint64) error
}

// VenueReader looks venues up by id.
type VenueReader interface {
	GetByID(ctx context.Context, id uint64) (model.Venue, error)
}

// Ledger admits bookings.  For a fixed venue it never persists two
// bookings whose closed date ranges overlap.
type Ledger struct {
	bookings BookingStore
	venues   VenueReader
	events   EventPublisher
	logger   *log.Logger
	now      func() time.Time
	onWrite  func(ctx context.Context)
}

func NewLedger(bookings BookingStore, venues VenueReader, events EventPublisher, logger *log.Logger) *Ledger {
	return &Ledger{
		bookings: bookings,
		venues:   venues,
		events:   events,
		logger:   defaultLogger(logger),
		now:      time.Now,
	}
}

// OnWrite registers fn to run after a booking is admitted or deleted.
func (l *Ledger) OnWrite(fn func(ctx context.Context)) { l.onWrite = fn }

func (l *Ledger) written(ctx context.Context) {
	if l.onWrite != nil {
		l.onWrite(ctx)
	}
}

// ReserveRequest asks for venue VenueID on behalf of UserID.
type ReserveRequest struct {
	VenueID   uint64
	UserID    uint64
	StartDate model.Date
	EndDate   model.Date
}

// findOverlap returns the first booking whose range overlaps rng.
func findOverlap(existing []model.Booking, rng model.DateRange) (model.Booking, bool) {
	for _, b := range existing {
		if b.Range().Overlaps(rng) {
			return b, true
		}
	}
	return model.Booking{}, false
}

// TryReserve admits the booking or fails with ErrConflict.  The overlap
// check and the insert run while the venue lock is held, so concurrent
// requests for one venue are admitted one at a time.
func (l *Ledger) TryReserve(ctx context.Context, req ReserveRequest) (model.Booking, error) {
	rng, err := dateRange(req.StartDate, req.EndDate)
	if err != nil {
		metrics.BookingAttempts.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return model.Booking{}, err
	}
	if req.VenueID == 0 || req.UserID == 0 {
		metrics.BookingAttempts.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return model.Booking{}, validation("venue and user are required")
	}

	b, err := l.admit(ctx, req.VenueID, req.UserID, rng)
	switch {
	case err == nil:
		metrics.BookingAttempts.WithLabelValues(metrics.OutcomeAdmitted).Inc()
	case IsKind(err, ErrConflict):
		metrics.BookingAttempts.WithLabelValues(metrics.OutcomeConflict).Inc()
		return model.Booking{}, err
	case IsKind(err, ErrNotFound):
		metrics.BookingAttempts.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return model.Booking{}, err
	default:
		metrics.BookingAttempts.WithLabelValues(metrics.OutcomeError).Inc()
		return model.Booking{}, err
	}

	if v, err := l.venues.GetByID(ctx, b.VenueID); err == nil {
		b.VenueName = v.Name
	}
	l.written(ctx)
	l.logger.Infof("booking %d admitted: venue=%d user=%d dates=%s", b.ID, b.VenueID, b.UserID, rng)
	publish(ctx, l.events, l.logger, queue.BookingCreatedQueue, bookingEvent(b, l.now()))
	return b, nil
}

func (l *Ledger) admit(ctx context.Context, venueID, userID uint64, rng model.DateRange) (model.Booking, error) {
	lock, err := l.bookings.LockVenue(ctx, venueID)
	if err != nil {
		return model.Booking{}, fromRepo(err, "venue")
	}
	defer func() { _ = lock.Rollback() }()
	started := time.Now()
	defer func() { metrics.AdmissionDuration.Observe(time.Since(started).Seconds()) }()

	existing, err := lock.Bookings(ctx)
	if err != nil {
		return model.Booking{}, err
	}
	if _, clash := findOverlap(existing, rng); clash {
		return model.Booking{}, conflict()
	}

	b := model.Booking{
		UserID:    userID,
		VenueID:   venueID,
		StartDate: rng.Start,
		EndDate:   rng.End,
	}
	if err := lock.Insert(ctx, &b); err != nil {
		return model.Booking{}, err
	}
	if err := lock.Commit(); err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

// CheckAvailability applies the same validation and overlap test as
// TryReserve without persisting anything and without taking the lock, so
// a later TryReserve may still lose a race.
func (l *Ledger) CheckAvailability(ctx context.Context, venueID uint64, start, end model.Date) (model.Venue, model.DateRange, error) {
	rng, err := dateRange(start, end)
	if err != nil {
		return model.Venue{}, model.DateRange{}, err
	}
	v, err := l.venues.GetByID(ctx, venueID)
	if err != nil {
		return model.Venue{}, model.DateRange{}, fromRepo(err, "venue")
	}
	existing, err := l.bookings.List(ctx, repository.BookingFilter{VenueID: venueID})
	if err != nil {
		return model.Venue{}, model.DateRange{}, err
	}
	if _, clash := findOverlap(existing, rng); clash {
		return model.Venue{}, model.DateRange{}, conflict()
	}
	return v, rng, nil
}

// SetVerified flips the verified flag.  Only the owner of the booked
// venue may do so.
func (l *Ledger) SetVerified(ctx context.Context, caller Caller, id uint64, verified bool) (model.Booking, error) {
	b, err := l.bookings.GetByID(ctx, id)
	if err != nil {
		return model.Booking{}, fromRepo(err, "booking")
	}
	v, err := l.venues.GetByID(ctx, b.VenueID)
	if err != nil {
		return model.Booking{}, fromRepo(err, "venue")
	}
	if v.OwnerID != caller.UserID {
		return model.Booking{}, newError(ErrForbidden, "only the venue owner can verify bookings")
	}
	if err := l.bookings.SetVerified(ctx, id, verified); err != nil {
		return model.Booking{}, fromRepo(err, "booking")
	}
	b.Verified = verified
	return b, nil
}

// Get returns one booking with its venue name.
func (l *Ledger) Get(ctx context.Context, id uint64) (model.Booking, error) {
	b, err := l.bookings.GetByID(ctx, id)
	return b, fromRepo(err, "booking")
}

// List returns bookings matching f; the zero filter lists everything.
func (l *Ledger) List(ctx context.Context, f repository.BookingFilter) ([]model.Booking, error) {
	return l.bookings.List(ctx, f)
}

// Ranges returns the booked intervals per venue, so a Ledger can serve as
// the catalog's RangeReader.
func (l *Ledger) Ranges(ctx context.Context, venueIDs ...uint64) (map[uint64][]model.DateRange, error) {
	return l.bookings.Ranges(ctx, venueIDs...)
}

// Delete removes a booking.  The booking's user and the venue owner may
// delete it.  No cancellation record is written.
func (l *Ledger) Delete(ctx context.Context, caller Caller, id uint64) error {
	b, err := l.bookings.GetByID(ctx, id)
	if err != nil {
		return fromRepo(err, "booking")
	}
	if b.UserID != caller.UserID {
		v, err := l.venues.GetByID(ctx, b.VenueID)
		if err != nil {
			return fromRepo(err, "venue")
		}
		if v.OwnerID != caller.UserID {
			return newError(ErrForbidden, "not allowed to delete this booking")
		}
	}
	if err := l.bookings.Delete(ctx, id); err != nil {
		return fromRepo(err, "booking")
	}
	l.written(ctx)
	return nil
}
