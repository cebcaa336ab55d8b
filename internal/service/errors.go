// Package service holds the booking rules: admission with overlap
// detection, verification, cancellation records, the venue catalog and
// payment initiation.  Handlers translate its errors to HTTP statuses by
// kind.
package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/venue-booking/internal/repository"
)

// Error kinds.  Match with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("booking conflict")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrInUse      = errors.New("in use")
	ErrUpstream   = errors.New("upstream error")
)

// ConflictMessage is returned when a requested range overlaps an
// existing booking of the venue.
const ConflictMessage = "This venue is already booked for the selected dates"

// Error is a classified failure.  Message is safe to show to clients;
// Err, when set, is the underlying cause and is only logged.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func validation(format string, args ...any) *Error {
	return newError(ErrValidation, format, args...)
}

func conflict() *Error { return newError(ErrConflict, ConflictMessage) }

// fromRepo classifies repository sentinels.  Anything unknown is returned
// unchanged and ends up as an internal error.
func fromRepo(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return newError(ErrNotFound, "%s not found", what)
	case errors.Is(err, repository.ErrInUse):
		return newError(ErrInUse, "%s is still referenced by bookings", what)
	}
	return err
}

// IsKind reports whether err is a service error of the given kind.
func IsKind(err, kind error) bool {
	return errors.Is(err, kind)
}
