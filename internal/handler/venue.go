package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/venue-booking/internal/model"
	"github.com/iliyamo/venue-booking/internal/repository"
	"github.com/iliyamo/venue-booking/internal/service"
)

// VenueHandler serves the venue catalog.  Reads are public; writes need
// the OWNER role and ownership of the venue.
type VenueHandler struct {
	Catalog *service.Catalog
}

func NewVenueHandler(catalog *service.Catalog) *VenueHandler {
	if catalog == nil {
		panic("nil catalog passed to NewVenueHandler")
	}
	return &VenueHandler{Catalog: catalog}
}

// venueReq is the create/update body.  Absent fields are left unchanged
// on update.
type venueReq struct {
	Name        *string          `json:"venuename"`
	Address     *string          `json:"venueaddress"`
	Review      *string          `json:"review"`
	Features    *string          `json:"features"`
	Description *string          `json:"description"`
	ImageURLs   *[]string        `json:"imageurl"`
	MinPrice    *decimal.Decimal `json:"min_price"`
	MaxPrice    *decimal.Decimal `json:"max_price"`
	MaxCapacity *int64           `json:"max_capacity"`
}

func (r venueReq) patch() service.VenuePatch {
	return service.VenuePatch{
		Name:        r.Name,
		Address:     r.Address,
		Review:      r.Review,
		Features:    r.Features,
		Description: r.Description,
		ImageURLs:   r.ImageURLs,
		MinPrice:    r.MinPrice,
		MaxPrice:    r.MaxPrice,
		MaxCapacity: r.MaxCapacity,
	}
}

type venueResp struct {
	ID          uint64            `json:"venueid"`
	Name        string            `json:"venuename"`
	Address     string            `json:"venueaddress"`
	Review      string            `json:"review"`
	Features    string            `json:"features"`
	Description string            `json:"description"`
	ImageURLs   []string          `json:"imageurl"`
	OwnerID     uint64            `json:"venueownerid"`
	MinPrice    string            `json:"min_price"`
	MaxPrice    string            `json:"max_price"`
	MaxCapacity uint32            `json:"max_capacity"`
	BookedDates []model.DateRange `json:"booked_dates"`
}

func toVenueResp(l service.Listing) venueResp {
	images := []string(l.ImageURLs)
	if images == nil {
		images = []string{}
	}
	booked := l.BookedDates
	if booked == nil {
		booked = []model.DateRange{}
	}
	return venueResp{
		ID:          l.ID,
		Name:        l.Name,
		Address:     l.Address,
		Review:      l.Review,
		Features:    l.Features,
		Description: l.Description,
		ImageURLs:   images,
		OwnerID:     l.OwnerID,
		MinPrice:    l.MinPrice.StringFixed(2),
		MaxPrice:    l.MaxPrice.StringFixed(2),
		MaxCapacity: l.MaxCapacity,
		BookedDates: booked,
	}
}

func toVenueResps(ls []service.Listing) []venueResp {
	out := make([]venueResp, 0, len(ls))
	for _, l := range ls {
		out = append(out, toVenueResp(l))
	}
	return out
}

// List handles GET /api/venues.  ?id= returns that single venue and
// ?owner= narrows the list to one owner.
func (h *VenueHandler) List(c echo.Context) error {
	id, ok := queryID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	owner, ok := queryID(c, "owner")
	if !ok {
		return badRequest(c, "invalid owner")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if id != 0 {
		l, err := h.Catalog.Get(ctx, id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, toVenueResp(l))
	}
	ls, err := h.Catalog.List(ctx, repository.VenueFilter{OwnerID: owner})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toVenueResps(ls))
}

// Get handles GET /api/venues/:id and /api/venues/id/:id.
func (h *VenueHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	l, err := h.Catalog.Get(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toVenueResp(l))
}

// ListByOwner handles GET /api/venues/owner/:ownerid.
func (h *VenueHandler) ListByOwner(c echo.Context) error {
	owner, ok := parseID(c, "ownerid")
	if !ok {
		return badRequest(c, "invalid owner id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	ls, err := h.Catalog.List(ctx, repository.VenueFilter{OwnerID: owner})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toVenueResps(ls))
}

// Create handles POST /api/venues and /api/venueRegister.
func (h *VenueHandler) Create(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	var req venueReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	l, err := h.Catalog.Create(ctx, caller, req.patch())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toVenueResp(l))
}

// Update handles PUT and PATCH /api/venues/:id.  Both apply only the
// fields present in the body.
func (h *VenueHandler) Update(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req venueReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	l, err := h.Catalog.Update(ctx, caller, id, req.patch())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toVenueResp(l))
}

// Delete handles DELETE /api/venues/:id.
func (h *VenueHandler) Delete(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Catalog.Delete(ctx, caller, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
