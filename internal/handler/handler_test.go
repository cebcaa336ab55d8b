package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/venue-booking/internal/config"
	"github.com/iliyamo/venue-booking/internal/middleware"
	"github.com/iliyamo/venue-booking/internal/model"
	"github.com/iliyamo/venue-booking/internal/payment"
	"github.com/iliyamo/venue-booking/internal/repository/memory"
	"github.com/iliyamo/venue-booking/internal/service"
)

const testSecret = "handler-test-secret"

type fakeGateway struct {
	calls int
	last  payment.InitiateRequest
	err   error
}

func (g *fakeGateway) Initiate(_ context.Context, req payment.InitiateRequest) (payment.Initiation, error) {
	g.calls++
	g.last = req
	if g.err != nil {
		return payment.Initiation{}, g.err
	}
	return payment.Initiation{Pidx: "pidx-1", PaymentURL: "https://pay.example/pidx-1", ExpiresAt: "2030-01-01T00:00:00Z"}, nil
}

type app struct {
	e       *echo.Echo
	db      *memory.DB
	gateway *fakeGateway
}

func newApp(t *testing.T) *app {
	t.Helper()
	db := memory.New()
	cfg := config.Config{JWTSecret: testSecret, AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: bcrypt.MinCost}

	ledger := service.NewLedger(db.Bookings(), db.Venues(), nil, nil)
	recorder := service.NewRecorder(db.CanceledBookings(), db.Bookings(), db.Venues(), nil, nil)
	catalog := service.NewCatalog(db.Venues(), ledger, nil)
	gw := &fakeGateway{}
	payments := service.NewPayments(ledger, gw, "https://app.example/paid", nil)

	auth := NewAuthHandler(cfg, db.Users(), db.Tokens())
	venues := NewVenueHandler(catalog)
	bookings := NewBookingHandler(ledger, recorder)
	cancels := NewCancellationHandler(recorder)
	profiles := NewProfileHandler(db.Profiles())
	notes := NewNoteHandler(db.Notes())
	pay := NewPaymentHandler(payments)

	e := echo.New()
	jwt := middleware.JWTAuth(testSecret)
	owner := middleware.RequireRole(model.RoleOwner)

	e.POST("/api/auth/register", auth.Register)
	e.POST("/api/auth/login", auth.Login)
	e.POST("/api/auth/refresh", auth.Refresh)
	e.POST("/api/auth/logout", auth.Logout)
	e.GET("/api/me", auth.Me, jwt)

	e.GET("/api/venues", venues.List)
	e.GET("/api/venues/:id", venues.Get)
	e.GET("/api/venues/owner/:ownerid", venues.ListByOwner)
	e.POST("/api/venues", venues.Create, jwt, owner)
	e.PATCH("/api/venues/:id", venues.Update, jwt, owner)
	e.DELETE("/api/venues/:id", venues.Delete, jwt, owner)

	e.GET("/api/userbookings/:user_id", bookings.ListForUser)
	e.GET("/api/bookings", bookings.List, jwt)
	e.POST("/api/bookings", bookings.Create, jwt)
	e.GET("/api/bookings/:id", bookings.Get, jwt)
	e.PATCH("/api/bookings/:id", bookings.Update, jwt)
	e.DELETE("/api/bookings/:id", bookings.Delete, jwt)
	e.POST("/api/bookings/:id/cancel", bookings.Cancel, jwt)

	e.GET("/api/canceled-bookings", cancels.List)
	e.GET("/api/canceled-bookings/:user_id", cancels.ListForUser)
	e.POST("/api/canceled-bookings", cancels.Create, jwt)

	e.POST("/api/register", profiles.Register)
	e.GET("/api/userProfiles/:username", profiles.Get)
	e.GET("/api/userDetails", profiles.Me, jwt)

	e.GET("/api/notes", notes.List, jwt)
	e.POST("/api/notes", notes.Create, jwt)
	e.DELETE("/api/notes/:id", notes.Delete, jwt)

	e.POST("/api/payments/initiate", pay.Initiate, jwt)

	return &app{e: e, db: db, gateway: gw}
}

func (a *app) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload string
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		payload = string(b)
	}
	req := httptest.NewRequest(method, path, strings.NewReader(payload))
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

// signup registers an account and returns its access token and id.
func (a *app) signup(t *testing.T, username string, isOwner bool) (string, uint64) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/auth/register", "", echo.Map{
		"username": username, "email": username + "@example.com", "password": "correct-horse", "is_venue_owner": isOwner,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Access.Token, resp.User.ID
}

func (a *app) addVenue(t *testing.T, token string) venueResp {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/venues", token, echo.Map{
		"venuename": "Lake Hall", "venueaddress": "1 Shore Rd", "min_price": "1000", "max_price": 1500,
		"max_capacity": 120, "imageurl": []string{"a.jpg"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var v venueResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestAuth_RegisterLoginRefreshLogout(t *testing.T) {
	a := newApp(t)
	token, id := a.signup(t, "olga", true)

	rec := a.do(t, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":`+jsonNum(id)+`,"username":"olga","role":"OWNER"}`, rec.Body.String())

	assert.Equal(t, http.StatusConflict, a.do(t, http.MethodPost, "/api/auth/register", "", echo.Map{
		"username": "olga", "email": "x@example.com", "password": "correct-horse",
	}).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, "/api/auth/register", "", echo.Map{
		"username": "weak", "email": "w@example.com", "password": "short",
	}).Code)

	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodPost, "/api/auth/login", "", echo.Map{
		"username": "olga", "password": "wrong-password",
	}).Code)
	rec = a.do(t, http.MethodPost, "/api/auth/login", "", echo.Map{"username": "olga", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[authResp](t, rec)
	assert.Equal(t, model.RoleOwner, login.User.Role)

	rec = a.do(t, http.MethodPost, "/api/auth/refresh", "", echo.Map{"refresh_token": login.Refresh.Token})
	require.Equal(t, http.StatusOK, rec.Code)
	rotated := decode[authResp](t, rec)
	assert.NotEqual(t, login.Refresh.Token, rotated.Refresh.Token)
	assert.Equal(t, http.StatusUnauthorized,
		a.do(t, http.MethodPost, "/api/auth/refresh", "", echo.Map{"refresh_token": login.Refresh.Token}).Code,
		"a rotated refresh token is spent")

	assert.Equal(t, http.StatusNoContent, a.do(t, http.MethodPost, "/api/auth/logout", rotated.Access.Token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized,
		a.do(t, http.MethodPost, "/api/auth/refresh", "", echo.Map{"refresh_token": rotated.Refresh.Token}).Code,
		"logout with a bearer revokes every session")
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, "/api/auth/logout", "", nil).Code)
}

func jsonNum(n uint64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestVenues_CRUD(t *testing.T) {
	a := newApp(t)
	ownerTok, ownerID := a.signup(t, "olga", true)
	custTok, _ := a.signup(t, "carl", false)

	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodPost, "/api/venues", custTok, echo.Map{"venuename": "X"}).Code)

	v := a.addVenue(t, ownerTok)
	assert.Equal(t, "1000.00", v.MinPrice)
	assert.Equal(t, ownerID, v.OwnerID)
	assert.Equal(t, []string{"a.jpg"}, v.ImageURLs)
	assert.Empty(t, v.BookedDates)

	rec := a.do(t, http.MethodPost, "/api/venues", ownerTok, echo.Map{
		"venuename": "Bad", "venueaddress": "x", "min_price": 10, "max_price": 5, "max_capacity": 1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "min_price above max_price")

	rec = a.do(t, http.MethodGet, "/api/venues?id="+jsonNum(v.ID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Lake Hall", decode[venueResp](t, rec).Name)

	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/api/venues/999", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/api/venues/abc", "", nil).Code)

	rec = a.do(t, http.MethodGet, "/api/venues/owner/"+jsonNum(ownerID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]venueResp](t, rec), 1)

	rec = a.do(t, http.MethodPatch, "/api/venues/"+jsonNum(v.ID), ownerTok, echo.Map{"review": "Lovely"})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[venueResp](t, rec)
	assert.Equal(t, "Lovely", updated.Review)
	assert.Equal(t, "Lake Hall", updated.Name, "absent fields are kept")

	other, _ := a.signup(t, "sam", true)
	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodDelete, "/api/venues/"+jsonNum(v.ID), other, nil).Code)
	assert.Equal(t, http.StatusNoContent, a.do(t, http.MethodDelete, "/api/venues/"+jsonNum(v.ID), ownerTok, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/api/venues/"+jsonNum(v.ID), "", nil).Code)
}

func TestBookings_ConflictVerifyCancel(t *testing.T) {
	a := newApp(t)
	ownerTok, _ := a.signup(t, "olga", true)
	custTok, custID := a.signup(t, "carl", false)
	v := a.addVenue(t, ownerTok)

	rec := a.do(t, http.MethodPost, "/api/bookings", custTok, echo.Map{
		"venue": v.ID, "user": 999, "start_date": "2023-06-01", "end_date": "2023-06-05",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	b := decode[bookingResp](t, rec)
	assert.Equal(t, custID, b.UserID, "the booking belongs to the caller")
	assert.Equal(t, "Lake Hall", b.VenueName)
	assert.False(t, b.Verified)

	rec = a.do(t, http.MethodPost, "/api/bookings", custTok, echo.Map{
		"venue": v.ID, "start_date": "2023-06-05", "end_date": "2023-06-07",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already booked")

	rec = a.do(t, http.MethodPost, "/api/bookings", custTok, echo.Map{
		"venue": v.ID, "start_date": "2023-06-09", "end_date": "2023-06-08",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "inverted range")

	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodPost, "/api/bookings", "", echo.Map{"venue": v.ID}).Code)

	rec = a.do(t, http.MethodGet, "/api/venues/"+jsonNum(v.ID), "", nil)
	assert.Equal(t, []model.DateRange{{Start: model.MustParseDate("2023-06-01"), End: model.MustParseDate("2023-06-05")}},
		decode[venueResp](t, rec).BookedDates)

	id := jsonNum(b.ID)
	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodPatch, "/api/bookings/"+id, custTok, echo.Map{"verified": true}).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPatch, "/api/bookings/"+id, ownerTok, echo.Map{}).Code)
	rec = a.do(t, http.MethodPatch, "/api/bookings/"+id, ownerTok, echo.Map{"verified": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[bookingResp](t, rec).Verified)

	rec = a.do(t, http.MethodGet, "/api/userbookings/"+jsonNum(custID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]bookingResp](t, rec), 1)

	rec = a.do(t, http.MethodGet, "/api/bookings?venue="+jsonNum(v.ID), ownerTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]bookingResp](t, rec), 1)

	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodPost, "/api/bookings/"+id+"/cancel", ownerTok, echo.Map{"reason": "x"}).Code)
	rec = a.do(t, http.MethodPost, "/api/bookings/"+id+"/cancel", custTok, echo.Map{"reason": "Plans changed"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rc := decode[canceledResp](t, rec)
	assert.Equal(t, "carl", rc.UserName)
	assert.Equal(t, "1 Shore Rd", rc.VenueAddress)

	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/api/bookings/"+id, custTok, nil).Code, "cancel keeps the booking")
	assert.Equal(t, http.StatusConflict, a.do(t, http.MethodDelete, "/api/venues/"+jsonNum(v.ID), ownerTok, nil).Code)

	assert.Equal(t, http.StatusNoContent, a.do(t, http.MethodDelete, "/api/bookings/"+id, custTok, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/api/bookings/"+id, custTok, nil).Code)

	rec = a.do(t, http.MethodGet, "/api/canceled-bookings/"+jsonNum(custID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Plans changed", decode[[]canceledResp](t, rec)[0].Reason)
}

func TestCancellations_Record(t *testing.T) {
	a := newApp(t)
	tok, id := a.signup(t, "carl", false)

	rec := a.do(t, http.MethodPost, "/api/canceled-bookings", tok, echo.Map{
		"venue_name": "Gone Hall", "venue_address": "Cancel Street", "user_name": "carl",
		"start_date": "2024-01-10", "end_date": "2024-01-12", "reason": "Test cancellation",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, id, decode[canceledResp](t, rec).UserID)

	rec = a.do(t, http.MethodPost, "/api/canceled-bookings", tok, echo.Map{"venue_name": "Gone Hall"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/canceled-bookings", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]canceledResp](t, rec), 1)
}

func TestProfiles(t *testing.T) {
	a := newApp(t)
	body := echo.Map{
		"username": "newuser", "email": "newuser@example.com", "is_venue_owner": false,
		"address": "456 New St", "phoneNumber": "9876543210",
	}
	rec := a.do(t, http.MethodPost, "/api/register", "", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusConflict, a.do(t, http.MethodPost, "/api/register", "", body).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, "/api/register", "", echo.Map{"username": "x", "email": "nope"}).Code)

	rec = a.do(t, http.MethodGet, "/api/userProfiles/newuser", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "9876543210", decode[profileBody](t, rec).PhoneNumber)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/api/userProfiles/ghost", "", nil).Code)

	tok, _ := a.signup(t, "newuser", false)
	rec = a.do(t, http.MethodGet, "/api/userDetails", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "456 New St", decode[profileBody](t, rec).Address)
}

func TestNotes_ScopedToAuthor(t *testing.T) {
	a := newApp(t)
	alice, _ := a.signup(t, "alice", false)
	bob, _ := a.signup(t, "bob", false)

	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, "/api/notes", alice, echo.Map{"content": "no title"}).Code)
	rec := a.do(t, http.MethodPost, "/api/notes", alice, echo.Map{"title": "New Note", "content": "This is a new note"})
	require.Equal(t, http.StatusCreated, rec.Code)
	n := decode[noteResp](t, rec)

	rec = a.do(t, http.MethodGet, "/api/notes", bob, nil)
	assert.Empty(t, decode[[]noteResp](t, rec))

	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodDelete, "/api/notes/"+jsonNum(n.ID), bob, nil).Code)
	assert.Equal(t, http.StatusNoContent, a.do(t, http.MethodDelete, "/api/notes/"+jsonNum(n.ID), alice, nil).Code)
}

func TestPayments_Initiate(t *testing.T) {
	a := newApp(t)
	ownerTok, _ := a.signup(t, "olga", true)
	custTok, _ := a.signup(t, "carl", false)
	v := a.addVenue(t, ownerTok)

	rec := a.do(t, http.MethodPost, "/api/payments/initiate", custTok, echo.Map{
		"venue": v.ID, "start_date": "2023-07-01", "end_date": "2023-07-03", "email": "carl@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[initiateResp](t, rec)
	assert.Equal(t, "pidx-1", resp.Pidx)
	assert.Equal(t, "3000.00", resp.Amount)
	assert.Equal(t, 3, resp.Days)
	assert.NotEmpty(t, resp.PurchaseOrderID)
	assert.Equal(t, "https://app.example/paid", a.gateway.last.ReturnURL)

	a.do(t, http.MethodPost, "/api/bookings", custTok, echo.Map{"venue": v.ID, "start_date": "2023-07-02", "end_date": "2023-07-02"})
	rec = a.do(t, http.MethodPost, "/api/payments/initiate", custTok, echo.Map{
		"venue": v.ID, "start_date": "2023-07-01", "end_date": "2023-07-03",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already booked")
	assert.Equal(t, 1, a.gateway.calls, "no provider call for a booked range")

	a.gateway.err = payment.ErrProvider
	rec = a.do(t, http.MethodPost, "/api/payments/initiate", custTok, echo.Map{
		"venue": v.ID, "start_date": "2023-08-01", "end_date": "2023-08-01",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotContains(t, rec.Body.String(), payment.ErrProvider.Error())
}

func TestRespondError_HidesInternalErrors(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, respondError(c, assert.AnError))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, respondError(c, &service.Error{Kind: service.ErrInUse, Message: "venue is still referenced by bookings"}))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestMe_WithoutIdentity(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/me", nil), rec)
	h := NewAuthHandler(config.Config{}, nil, nil)

	require.NoError(t, h.Me(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
