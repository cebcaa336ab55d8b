package service

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venue-booking/internal/model"
	"github.com/iliyamo/venue-booking/internal/queue"
	"github.com/iliyamo/venue-booking/internal/repository/memory"
)

var (
	owner    = Caller{UserID: 1, Username: "olga", Role: model.RoleOwner}
	customer = Caller{UserID: 2, Username: "carl", Role: model.RoleCustomer}
	stranger = Caller{UserID: 3, Username: "sam", Role: model.RoleOwner}
)

type recordingPublisher struct {
	mu     sync.Mutex
	events map[string][]queue.BookingEvent
}

func (p *recordingPublisher) Publish(_ context.Context, q string, ev queue.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events == nil {
		p.events = map[string][]queue.BookingEvent{}
	}
	p.events[q] = append(p.events[q], ev)
	return nil
}

type fixture struct {
	db       *memory.DB
	events   *recordingPublisher
	ledger   *Ledger
	recorder *Recorder
	catalog  *Catalog
	venue    model.Venue
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memory.New()
	events := &recordingPublisher{}
	ledger := NewLedger(db.Bookings(), db.Venues(), events, nil)
	f := &fixture{
		db:       db,
		events:   events,
		ledger:   ledger,
		recorder: NewRecorder(db.CanceledBookings(), db.Bookings(), db.Venues(), events, nil),
		catalog:  NewCatalog(db.Venues(), ledger, nil),
	}
	f.venue = f.addVenue(t, owner, "Lake Hall", "1000")
	return f
}

func (f *fixture) addVenue(t *testing.T, c Caller, name, minPrice string) model.Venue {
	t.Helper()
	lst, err := f.catalog.Create(context.Background(), c, VenuePatch{
		Name:        ptr(name),
		Address:     ptr("1 Shore Rd"),
		MinPrice:    ptr(decimal.RequireFromString(minPrice)),
		MaxPrice:    ptr(decimal.RequireFromString(minPrice).Add(decimal.NewFromInt(500))),
		MaxCapacity: ptr(int64(120)),
	})
	require.NoError(t, err)
	return lst.Venue
}

func (f *fixture) book(t *testing.T, userID uint64, start, end string) model.Booking {
	t.Helper()
	b, err := f.ledger.TryReserve(context.Background(), ReserveRequest{
		VenueID:   f.venue.ID,
		UserID:    userID,
		StartDate: model.MustParseDate(start),
		EndDate:   model.MustParseDate(end),
	})
	require.NoError(t, err)
	return b
}

func ptr[T any](v T) *T { return &v }
