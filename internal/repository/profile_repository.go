package repository

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/venue-booking/internal/model"
)

// ProfileRepo stores the public contact card of a user, keyed by username.
type ProfileRepo struct{ db *sqlx.DB }

func NewProfileRepo(db *sqlx.DB) *ProfileRepo { return &ProfileRepo{db: db} }

// Create inserts p and fills its ID and CreatedAt.  A taken username
// yields ErrDuplicate.
func (r *ProfileRepo) Create(ctx context.Context, p *model.Profile) error {
	p.Username = strings.TrimSpace(p.Username)
	res, err := r.db.NamedExecContext(ctx,
		`INSERT INTO profiles (username, email, address, phone_number, is_venue_owner)
		 VALUES (:username, :email, :address, :phone_number, :is_venue_owner)`, p)
	if err != nil {
		return translate("insert profile", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return translate("reload profile",
		r.db.GetContext(ctx, &p.CreatedAt, "SELECT created_at FROM profiles WHERE id = ?", p.ID))
}

// GetByUsername returns the profile registered under username.
func (r *ProfileRepo) GetByUsername(ctx context.Context, username string) (model.Profile, error) {
	var p model.Profile
	err := r.db.GetContext(ctx, &p,
		`SELECT id, username, email, address, phone_number, is_venue_owner, created_at
		 FROM profiles WHERE username = ? LIMIT 1`, strings.TrimSpace(username))
	return p, translate("get profile", err)
}
