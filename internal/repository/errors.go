// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without inspecting driver errors.
package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique key (username) is already taken.
var ErrDuplicate = errors.New("duplicate")

// ErrInUse is returned when a delete cannot be performed because
// dependent rows still reference the record, such as deleting a venue
// that has bookings. Handlers should translate this into an HTTP 409.
var ErrInUse = errors.New("in use")

const (
	mysqlDuplicateEntry  = 1062
	mysqlRowIsReferenced = 1451
)

// translate maps driver errors onto the sentinels above and wraps everything
// else with the operation name.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDuplicateEntry:
			return ErrDuplicate
		case mysqlRowIsReferenced:
			return ErrInUse
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// expectOne turns "no matched row" into ErrNotFound.  The DSN sets
// clientFoundRows, so an UPDATE that changes nothing still counts.
func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
