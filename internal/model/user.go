package model

import "time"

// Roles carried in the access token.  An OWNER may list venues and verify
// bookings on them; a CUSTOMER books venues.
const (
	RoleOwner    = "OWNER"
	RoleCustomer = "CUSTOMER"
)

// User is the authentication identity as stored in the `users` table.
// It is deliberately separate from Profile: the two are joined by
// username, not by a foreign key.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Username     – unique login name; also the key of the matching Profile.
//	Email        – contact address, lower-cased.
//	PasswordHash – bcrypt hashed password.
//	Role         – OWNER or CUSTOMER.
//	IsActive     – whether the account may log in.
type User struct {
	ID           uint64    `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the token handed to the client is stored.
type RefreshToken struct {
	ID        uint64     `db:"id"`
	UserID    uint64     `db:"user_id"`
	TokenHash string     `db:"token_hash"`
	ExpiresAt time.Time  `db:"expires_at"`
	RevokedAt *time.Time `db:"revoked_at"`
	CreatedAt time.Time  `db:"created_at"`
}

// Active reports whether the token can still be exchanged at now.
func (t RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
