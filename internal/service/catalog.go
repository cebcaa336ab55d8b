package service

import (
	"context"
	"strings"

	"github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/venue-booking/internal/model"
	"github.com/iliyamo/venue-booking/internal/repository"
)

// VenueStore is the persistence the catalog needs.
type VenueStore interface {
	VenueReader
	Create(ctx context.Context, v *model.Venue) error
	List(ctx context.Context, f repository.VenueFilter) ([]model.Venue, error)
	Update(ctx context.Context, v *model.Venue) error
	Delete(ctx context.Context, id uint64) error
}

// RangeReader returns booked intervals per venue.
type RangeReader interface {
	Ranges(ctx context.Context, venueIDs ...uint64) (map[uint64][]model.DateRange, error)
}

// Listing is a venue together with the ranges already booked on it.
type Listing struct {
	model.Venue
	BookedDates []model.DateRange
}

// VenuePatch carries venue attributes.  Nil fields are left unchanged on
// update and must be supplied on create where required.
type VenuePatch struct {
	Name        *string
	Address     *string
	Review      *string
	Features    *string
	Description *string
	ImageURLs   *[]string
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	MaxCapacity *int64
}

func (p VenuePatch) apply(v *model.Venue) {
	if p.Name != nil {
		v.Name = strings.TrimSpace(*p.Name)
	}
	if p.Address != nil {
		v.Address = strings.TrimSpace(*p.Address)
	}
	if p.Review != nil {
		v.Review = *p.Review
	}
	if p.Features != nil {
		v.Features = *p.Features
	}
	if p.Description != nil {
		v.Description = *p.Description
	}
	if p.ImageURLs != nil {
		v.ImageURLs = model.StringList(append([]string{}, (*p.ImageURLs)...))
	}
	if p.MinPrice != nil {
		v.MinPrice = *p.MinPrice
	}
	if p.MaxPrice != nil {
		v.MaxPrice = *p.MaxPrice
	}
	if p.MaxCapacity != nil {
		if *p.MaxCapacity < 0 || *p.MaxCapacity > int64(^uint32(0)) {
			v.MaxCapacity = 0
		} else {
			v.MaxCapacity = uint32(*p.MaxCapacity)
		}
	}
}

func validateVenue(v model.Venue) error {
	switch {
	case v.Name == "":
		return validation("venuename is required")
	case v.Address == "":
		return validation("venueaddress is required")
	case v.MinPrice.IsNegative() || v.MaxPrice.IsNegative():
		return validation("prices must not be negative")
	case v.MinPrice.GreaterThan(v.MaxPrice):
		return validation("min_price must not exceed max_price")
	case v.MaxCapacity == 0:
		return validation("max_capacity must be a positive number")
	}
	return nil
}

// Catalog manages venues.  Only users with the OWNER role may list venues
// and only a venue's owner may change or delete it.
type Catalog struct {
	venues  VenueStore
	ranges  RangeReader
	logger  *log.Logger
	onWrite func(ctx context.Context)
}

func NewCatalog(venues VenueStore, ranges RangeReader, logger *log.Logger) *Catalog {
	return &Catalog{venues: venues, ranges: ranges, logger: defaultLogger(logger)}
}

// OnWrite registers fn to run after every successful venue write, for
// example to purge cached listings.
func (c *Catalog) OnWrite(fn func(ctx context.Context)) { c.onWrite = fn }

func (c *Catalog) written(ctx context.Context) {
	if c.onWrite != nil {
		c.onWrite(ctx)
	}
}

// Create lists a new venue owned by the caller.
func (c *Catalog) Create(ctx context.Context, caller Caller, p VenuePatch) (Listing, error) {
	if !caller.IsOwner() {
		return Listing{}, newError(ErrForbidden, "only venue owners can list venues")
	}
	v := model.Venue{OwnerID: caller.UserID, ImageURLs: model.StringList{}}
	p.apply(&v)
	if err := validateVenue(v); err != nil {
		return Listing{}, err
	}
	if err := c.venues.Create(ctx, &v); err != nil {
		return Listing{}, err
	}
	c.logger.Infof("venue %d created by user %d", v.ID, caller.UserID)
	c.written(ctx)
	return Listing{Venue: v, BookedDates: []model.DateRange{}}, nil
}

// Get returns one venue with its booked ranges.
func (c *Catalog) Get(ctx context.Context, id uint64) (Listing, error) {
	v, err := c.venues.GetByID(ctx, id)
	if err != nil {
		return Listing{}, fromRepo(err, "venue")
	}
	out, err := c.withRanges(ctx, []model.Venue{v})
	if err != nil {
		return Listing{}, err
	}
	return out[0], nil
}

// List returns venues matching f with their booked ranges.
func (c *Catalog) List(ctx context.Context, f repository.VenueFilter) ([]Listing, error) {
	vs, err := c.venues.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return c.withRanges(ctx, vs)
}

func (c *Catalog) withRanges(ctx context.Context, vs []model.Venue) ([]Listing, error) {
	ids := make([]uint64, len(vs))
	for i, v := range vs {
		ids[i] = v.ID
	}
	ranges, err := c.ranges.Ranges(ctx, ids...)
	if err != nil {
		return nil, err
	}
	out := make([]Listing, len(vs))
	for i, v := range vs {
		booked := ranges[v.ID]
		if booked == nil {
			booked = []model.DateRange{}
		}
		out[i] = Listing{Venue: v, BookedDates: booked}
	}
	return out, nil
}

// Update applies p to the caller's venue.
func (c *Catalog) Update(ctx context.Context, caller Caller, id uint64, p VenuePatch) (Listing, error) {
	v, err := c.owned(ctx, caller, id)
	if err != nil {
		return Listing{}, err
	}
	p.apply(&v)
	if err := validateVenue(v); err != nil {
		return Listing{}, err
	}
	if err := c.venues.Update(ctx, &v); err != nil {
		return Listing{}, fromRepo(err, "venue")
	}
	c.written(ctx)
	out, err := c.withRanges(ctx, []model.Venue{v})
	if err != nil {
		return Listing{}, err
	}
	return out[0], nil
}

// Delete removes the caller's venue.  It fails with ErrInUse while the
// venue has bookings.
func (c *Catalog) Delete(ctx context.Context, caller Caller, id uint64) error {
	if _, err := c.owned(ctx, caller, id); err != nil {
		return err
	}
	if err := c.venues.Delete(ctx, id); err != nil {
		return fromRepo(err, "venue")
	}
	c.logger.Infof("venue %d deleted by user %d", id, caller.UserID)
	c.written(ctx)
	return nil
}

func (c *Catalog) owned(ctx context.Context, caller Caller, id uint64) (model.Venue, error) {
	v, err := c.venues.GetByID(ctx, id)
	if err != nil {
		return model.Venue{}, fromRepo(err, "venue")
	}
	if v.OwnerID != caller.UserID {
		return model.Venue{}, newError(ErrForbidden, "not allowed to modify this venue")
	}
	return v, nil
}
