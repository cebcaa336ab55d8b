package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/venue-booking/internal/model"
)

// CanceledBookingRepo appends to and reads the cancellation log.  Rows are
// never updated or deleted.
type CanceledBookingRepo struct{ db *sqlx.DB }

func NewCanceledBookingRepo(db *sqlx.DB) *CanceledBookingRepo {
	return &CanceledBookingRepo{db: db}
}

const canceledSelect = `SELECT id, venue_name, venue_address, user_id, user_name, start_date, end_date,
	reason, created_at FROM canceled_bookings`

// Create appends c and fills its ID and CreatedAt.
func (r *CanceledBookingRepo) Create(ctx context.Context, c *model.CanceledBooking) error {
	res, err := r.db.NamedExecContext(ctx,
		`INSERT INTO canceled_bookings (venue_name, venue_address, user_id, user_name, start_date, end_date, reason)
		 VALUES (:venue_name, :venue_address, :user_id, :user_name, :start_date, :end_date, :reason)`, c)
	if err != nil {
		return translate("insert canceled booking", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return translate("reload canceled booking",
		r.db.GetContext(ctx, &c.CreatedAt, "SELECT created_at FROM canceled_bookings WHERE id = ?", c.ID))
}

// ListByUser returns the user's cancellations, newest first.
func (r *CanceledBookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.CanceledBooking, error) {
	out := []model.CanceledBooking{}
	err := r.db.SelectContext(ctx, &out, canceledSelect+" WHERE user_id = ? ORDER BY id DESC", userID)
	if err != nil {
		return nil, translate("list canceled bookings", err)
	}
	return out, nil
}

// ListAll returns every cancellation, newest first.
func (r *CanceledBookingRepo) ListAll(ctx context.Context) ([]model.CanceledBooking, error) {
	out := []model.CanceledBooking{}
	if err := r.db.SelectContext(ctx, &out, canceledSelect+" ORDER BY id DESC"); err != nil {
		return nil, translate("list canceled bookings", err)
	}
	return out, nil
}
