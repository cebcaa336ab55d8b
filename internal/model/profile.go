package model

import "time"

// Profile holds contact details shown to other users.  It is keyed by
// username and joined to User by that string only.
type Profile struct {
	ID           uint64    `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	Address      string    `db:"address"`
	PhoneNumber  string    `db:"phone_number"`
	IsVenueOwner bool      `db:"is_venue_owner"`
	CreatedAt    time.Time `db:"created_at"`
}

// Note is a short text owned by its author.
type Note struct {
	ID        uint64    `db:"id"`
	AuthorID  uint64    `db:"author_id"`
	Title     string    `db:"title"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}
