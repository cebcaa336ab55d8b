package model

import "time"

// Booking records a user's reservation of a venue for a closed range of
// calendar dates.  For a fixed venue no two bookings may overlap.
//
// Fields:
//
//	ID        – primary key identifier.
//	UserID    – users.id of the customer.
//	VenueID   – venues.id of the reserved venue.
//	StartDate – first reserved day.
//	EndDate   – last reserved day (inclusive).
//	Verified  – set by the venue owner once the booking is confirmed.
//	VenueName – venues.name, filled by joined reads only.
type Booking struct {
	ID        uint64    `db:"id"`
	UserID    uint64    `db:"user_id"`
	VenueID   uint64    `db:"venue_id"`
	StartDate Date      `db:"start_date"`
	EndDate   Date      `db:"end_date"`
	Verified  bool      `db:"verified"`
	CreatedAt time.Time `db:"created_at"`
	VenueName string    `db:"venue_name"`
}

// Range returns the booked interval.
func (b Booking) Range() DateRange {
	return DateRange{Start: b.StartDate, End: b.EndDate}
}

// CanceledBooking is an audit record of a cancelled reservation.  It copies
// the venue and user details it needs instead of referencing the booking,
// so it survives deletion of the booking, the venue or the user.
type CanceledBooking struct {
	ID           uint64    `db:"id"`
	VenueName    string    `db:"venue_name"`
	VenueAddress string    `db:"venue_address"`
	UserID       uint64    `db:"user_id"`
	UserName     string    `db:"user_name"`
	StartDate    Date      `db:"start_date"`
	EndDate      Date      `db:"end_date"`
	Reason       string    `db:"reason"`
	CreatedAt    time.Time `db:"created_at"`
}
