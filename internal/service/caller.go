package service

import (
	"github.com/iliyamo/venue-booking/internal/model"
)

// Caller is the authenticated user on whose behalf an operation runs.
type Caller struct {
	UserID   uint64
	Username string
	Role     string
}

func (c Caller) IsOwner() bool { return c.Role == model.RoleOwner }

// dateRange validates a requested interval.  Both dates are required and
// the end may not precede the start; a single day is fine.
func dateRange(start, end model.Date) (model.DateRange, error) {
	rng, err := model.NewDateRange(start, end)
	if err != nil {
		return model.DateRange{}, &Error{Kind: ErrValidation, Message: err.Error()}
	}
	return rng, nil
}
