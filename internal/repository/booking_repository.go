package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/venue-booking/internal/model"
)

// VenueLock is an open transaction that holds the row lock of one venue.
// While it is held no other admission for the same venue can read or
// insert bookings, so a check-then-insert on it is atomic.  Exactly one of
// Commit or Rollback must be called; Rollback after Commit is a no-op.
type VenueLock interface {
	// Bookings returns every booking of the locked venue.
	Bookings(ctx context.Context) ([]model.Booking, error)
	// Insert adds b to the locked venue and fills its ID and CreatedAt.
	Insert(ctx context.Context, b *model.Booking) error
	Commit() error
	Rollback() error
}

// BookingFilter narrows List.  Zero fields match everything.
type BookingFilter struct {
	VenueID uint64
	UserID  uint64
}

// BookingRepo provides data access to the bookings table.
type BookingRepo struct {
	db *sqlx.DB
}

func NewBookingRepo(db *sqlx.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingSelect = `SELECT b.id, b.user_id, b.venue_id, b.start_date, b.end_date, b.verified,
	b.created_at, v.name AS venue_name
	FROM bookings b JOIN venues v ON v.id = b.venue_id`

// LockVenue opens an admission transaction on venueID.  ErrNotFound is
// returned when the venue does not exist.
func (r *BookingRepo) LockVenue(ctx context.Context, venueID uint64) (VenueLock, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	if err := lockVenue(ctx, tx, venueID); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	return &venueTx{tx: tx, venueID: venueID}, nil
}

type venueTx struct {
	tx      *sqlx.Tx
	venueID uint64
	done    bool
}

func (t *venueTx) Bookings(ctx context.Context) ([]model.Booking, error) {
	out := []model.Booking{}
	err := t.tx.SelectContext(ctx, &out,
		`SELECT id, user_id, venue_id, start_date, end_date, verified, created_at
		 FROM bookings WHERE venue_id = ? ORDER BY start_date`, t.venueID)
	if err != nil {
		return nil, translate("list venue bookings", err)
	}
	return out, nil
}

func (t *venueTx) Insert(ctx context.Context, b *model.Booking) error {
	b.VenueID = t.venueID
	res, err := t.tx.ExecContext(ctx,
		"INSERT INTO bookings (user_id, venue_id, start_date, end_date, verified) VALUES (?, ?, ?, ?, ?)",
		b.UserID, b.VenueID, b.StartDate, b.EndDate, b.Verified)
	if err != nil {
		return translate("insert booking", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return translate("reload booking",
		t.tx.GetContext(ctx, &b.CreatedAt, "SELECT created_at FROM bookings WHERE id = ?", b.ID))
}

func (t *venueTx) Commit() error {
	t.done = true
	return t.tx.Commit()
}

func (t *venueTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.tx.Rollback()
}

// GetByID returns a booking together with its venue name.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	var b model.Booking
	err := r.db.GetContext(ctx, &b, bookingSelect+" WHERE b.id = ?", id)
	return b, translate("get booking", err)
}

// List returns bookings ordered by id.
func (r *BookingRepo) List(ctx context.Context, f BookingFilter) ([]model.Booking, error) {
	q := bookingSelect + " WHERE 1=1"
	var args []any
	if f.VenueID != 0 {
		q += " AND b.venue_id = ?"
		args = append(args, f.VenueID)
	}
	if f.UserID != 0 {
		q += " AND b.user_id = ?"
		args = append(args, f.UserID)
	}
	q += " ORDER BY b.id"
	out := []model.Booking{}
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, translate("list bookings", err)
	}
	return out, nil
}

// Ranges returns the booked intervals of each of the given venues, ordered
// by start date.  Venues without bookings are absent from the map.
func (r *BookingRepo) Ranges(ctx context.Context, venueIDs ...uint64) (map[uint64][]model.DateRange, error) {
	out := make(map[uint64][]model.DateRange, len(venueIDs))
	if len(venueIDs) == 0 {
		return out, nil
	}
	q, args, err := sqlx.In(
		"SELECT venue_id, start_date, end_date FROM bookings WHERE venue_id IN (?) ORDER BY venue_id, start_date",
		venueIDs)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		VenueID   uint64     `db:"venue_id"`
		StartDate model.Date `db:"start_date"`
		EndDate   model.Date `db:"end_date"`
	}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), args...); err != nil {
		return nil, translate("list booked ranges", err)
	}
	for _, row := range rows {
		out[row.VenueID] = append(out[row.VenueID], model.DateRange{Start: row.StartDate, End: row.EndDate})
	}
	return out, nil
}

// SetVerified updates only the verified flag.
func (r *BookingRepo) SetVerified(ctx context.Context, id uint64, verified bool) error {
	res, err := r.db.ExecContext(ctx, "UPDATE bookings SET verified = ? WHERE id = ?", verified, id)
	if err != nil {
		return translate("verify booking", err)
	}
	return expectOne(res)
}

// Delete removes a booking.  Cancellation records are not touched.
func (r *BookingRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM bookings WHERE id = ?", id)
	if err != nil {
		return translate("delete booking", err)
	}
	return expectOne(res)
}
