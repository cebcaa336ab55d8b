package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/venue-booking/internal/model"
)

const venueColumns = `id, owner_id, name, address, review, features, description, image_urls,
	min_price, max_price, max_capacity, created_at, updated_at`

// VenueRepo encapsulates all database queries related to venues.
type VenueRepo struct {
	db *sqlx.DB
}

func NewVenueRepo(db *sqlx.DB) *VenueRepo { return &VenueRepo{db: db} }

// VenueFilter narrows List.  A zero OwnerID matches every owner.
type VenueFilter struct {
	OwnerID uint64
}

// Create inserts v and reloads it so that timestamps are populated.
func (r *VenueRepo) Create(ctx context.Context, v *model.Venue) error {
	res, err := r.db.NamedExecContext(ctx,
		`INSERT INTO venues (owner_id, name, address, review, features, description, image_urls,
		                     min_price, max_price, max_capacity)
		 VALUES (:owner_id, :name, :address, :review, :features, :description, :image_urls,
		         :min_price, :max_price, :max_capacity)`, v)
	if err != nil {
		return translate("insert venue", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	fresh, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*v = fresh
	return nil
}

// GetByID returns the venue with the given id or ErrNotFound.
func (r *VenueRepo) GetByID(ctx context.Context, id uint64) (model.Venue, error) {
	var v model.Venue
	err := r.db.GetContext(ctx, &v, "SELECT "+venueColumns+" FROM venues WHERE id = ?", id)
	return v, translate("get venue", err)
}

// List returns venues ordered by id.
func (r *VenueRepo) List(ctx context.Context, f VenueFilter) ([]model.Venue, error) {
	q := "SELECT " + venueColumns + " FROM venues"
	var args []any
	if f.OwnerID != 0 {
		q += " WHERE owner_id = ?"
		args = append(args, f.OwnerID)
	}
	q += " ORDER BY id"
	out := []model.Venue{}
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, translate("list venues", err)
	}
	return out, nil
}

// Update overwrites every mutable column of v.  The owner never changes.
func (r *VenueRepo) Update(ctx context.Context, v *model.Venue) error {
	_, err := r.db.NamedExecContext(ctx,
		`UPDATE venues SET name = :name, address = :address, review = :review, features = :features,
		        description = :description, image_urls = :image_urls, min_price = :min_price,
		        max_price = :max_price, max_capacity = :max_capacity
		 WHERE id = :id`, v)
	if err != nil {
		return translate("update venue", err)
	}
	fresh, err := r.GetByID(ctx, v.ID)
	if err != nil {
		return err
	}
	*v = fresh
	return nil
}

// Delete removes a venue that has no bookings.  ErrInUse is returned while
// any booking still references it.
func (r *VenueRepo) Delete(ctx context.Context, id uint64) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	if err = lockVenue(ctx, tx, id); err != nil {
		return err
	}
	var n int
	if err = tx.GetContext(ctx, &n, "SELECT COUNT(*) FROM bookings WHERE venue_id = ?", id); err != nil {
		return translate("count bookings", err)
	}
	if n > 0 {
		return ErrInUse
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM venues WHERE id = ?", id); err != nil {
		return translate("delete venue", err)
	}
	return nil
}

// lockVenue takes the row lock used to serialize booking admission.
func lockVenue(ctx context.Context, tx *sqlx.Tx, venueID uint64) error {
	var id uint64
	err := tx.GetContext(ctx, &id, "SELECT id FROM venues WHERE id = ? FOR UPDATE", venueID)
	return translate("lock venue", err)
}
