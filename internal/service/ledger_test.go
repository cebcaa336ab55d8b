package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venue-booking/internal/model"
	"github.com/iliyamo/venue-booking/internal/queue"
	"github.com/iliyamo/venue-booking/internal/repository"
)

func TestTryReserve(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		wantKind   error
	}{
		{"ends on existing start", "2025-05-28", "2025-06-01", ErrConflict},
		{"starts on existing end", "2025-06-05", "2025-06-07", ErrConflict},
		{"inside existing", "2025-06-02", "2025-06-03", ErrConflict},
		{"covers existing", "2025-05-01", "2025-07-01", ErrConflict},
		{"day after existing end", "2025-06-06", "2025-06-08", nil},
		{"day before existing start", "2025-05-25", "2025-05-31", nil},
		{"single day", "2025-07-04", "2025-07-04", nil},
		{"inverted range", "2025-07-10", "2025-07-09", ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN a venue booked 2025-06-01..2025-06-05
			f := newFixture(t)
			f.book(t, customer.UserID, "2025-06-01", "2025-06-05")

			// WHEN another range is requested
			b, err := f.ledger.TryReserve(context.Background(), ReserveRequest{
				VenueID:   f.venue.ID,
				UserID:    customer.UserID,
				StartDate: model.MustParseDate(tt.start),
				EndDate:   model.MustParseDate(tt.end),
			})

			// THEN it is admitted only when disjoint
			all, lerr := f.ledger.List(context.Background(), repository.BookingFilter{VenueID: f.venue.ID})
			require.NoError(t, lerr)
			if tt.wantKind != nil {
				assert.ErrorIs(t, err, tt.wantKind)
				assert.Len(t, all, 1, "rejected request must not persist")
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, b.ID)
			assert.False(t, b.Verified)
			assert.Equal(t, "Lake Hall", b.VenueName)
			assert.Len(t, all, 2)
		})
	}
}

func TestTryReserve_ConflictMessage(t *testing.T) {
	f := newFixture(t)
	f.book(t, customer.UserID, "2025-06-01", "2025-06-05")

	_, err := f.ledger.TryReserve(context.Background(), ReserveRequest{
		VenueID: f.venue.ID, UserID: 9,
		StartDate: model.MustParseDate("2025-06-05"), EndDate: model.MustParseDate("2025-06-05"),
	})

	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ConflictMessage, se.Message)
}

func TestTryReserve_OtherVenueUnaffected(t *testing.T) {
	f := newFixture(t)
	f.book(t, customer.UserID, "2025-06-01", "2025-06-05")
	other := f.addVenue(t, owner, "Barn", "200")

	_, err := f.ledger.TryReserve(context.Background(), ReserveRequest{
		VenueID: other.ID, UserID: customer.UserID,
		StartDate: model.MustParseDate("2025-06-01"), EndDate: model.MustParseDate("2025-06-05"),
	})
	assert.NoError(t, err)
}

func TestTryReserve_MissingVenueAndDates(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.TryReserve(context.Background(), ReserveRequest{
		VenueID: 999, UserID: customer.UserID,
		StartDate: model.MustParseDate("2025-06-01"), EndDate: model.MustParseDate("2025-06-02"),
	})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.ledger.TryReserve(context.Background(), ReserveRequest{
		VenueID: f.venue.ID, UserID: customer.UserID, StartDate: model.MustParseDate("2025-06-01"),
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTryReserve_ConcurrentAdmitsOne(t *testing.T) {
	f := newFixture(t)
	const n = 16

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
		rejected int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(user uint64) {
			defer wg.Done()
			_, err := f.ledger.TryReserve(context.Background(), ReserveRequest{
				VenueID: f.venue.ID, UserID: user,
				StartDate: model.MustParseDate("2025-08-01"), EndDate: model.MustParseDate("2025-08-03"),
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				admitted++
			} else if IsKind(err, ErrConflict) {
				rejected++
			}
		}(uint64(100 + i))
	}
	wg.Wait()

	assert.Equal(t, 1, admitted)
	assert.Equal(t, n-1, rejected)
}

func TestTryReserve_PublishesEvent(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, customer.UserID, "2025-06-01", "2025-06-02")

	evs := f.events.events[queue.BookingCreatedQueue]
	require.Len(t, evs, 1)
	assert.Equal(t, b.ID, evs[0].BookingID)
	assert.Equal(t, "Lake Hall", evs[0].VenueName)
	assert.Equal(t, "2025-06-01", evs[0].StartDate)
}

func TestCheckAvailability(t *testing.T) {
	f := newFixture(t)
	f.book(t, customer.UserID, "2025-06-01", "2025-06-05")

	_, _, err := f.ledger.CheckAvailability(context.Background(), f.venue.ID,
		model.MustParseDate("2025-06-04"), model.MustParseDate("2025-06-09"))
	assert.ErrorIs(t, err, ErrConflict)

	v, rng, err := f.ledger.CheckAvailability(context.Background(), f.venue.ID,
		model.MustParseDate("2025-06-06"), model.MustParseDate("2025-06-09"))
	require.NoError(t, err)
	assert.Equal(t, f.venue.ID, v.ID)
	assert.Equal(t, 4, rng.Days())

	all, err := f.ledger.List(context.Background(), repository.BookingFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1, "availability checks never persist")
}

func TestSetVerified(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, customer.UserID, "2025-06-01", "2025-06-02")

	_, err := f.ledger.SetVerified(context.Background(), customer, b.ID, true)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.ledger.SetVerified(context.Background(), owner, 404, true)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := f.ledger.SetVerified(context.Background(), owner, b.ID, true)
	require.NoError(t, err)
	assert.True(t, got.Verified)

	stored, err := f.ledger.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.True(t, stored.Verified)
	assert.Equal(t, b.StartDate, stored.StartDate, "only the flag changes")
}

func TestDeleteBooking(t *testing.T) {
	f := newFixture(t)
	mine := f.book(t, customer.UserID, "2025-06-01", "2025-06-02")
	theirs := f.book(t, 50, "2025-06-10", "2025-06-12")

	assert.ErrorIs(t, f.ledger.Delete(context.Background(), stranger, mine.ID), ErrForbidden)
	assert.NoError(t, f.ledger.Delete(context.Background(), customer, mine.ID))
	assert.NoError(t, f.ledger.Delete(context.Background(), owner, theirs.ID), "venue owner may delete")
	assert.ErrorIs(t, f.ledger.Delete(context.Background(), owner, theirs.ID), ErrNotFound)
}
