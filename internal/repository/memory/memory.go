// Package memory is an in-memory implementation of the repositories in
// package repository.  It keeps the same method sets and sentinel errors
// so services and handlers can be exercised without MySQL.
package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/venue-booking/internal/model"
	"github.com/iliyamo/venue-booking/internal/repository"
	"github.com/iliyamo/venue-booking/internal/utils"
)

// DB holds every table.  One RWMutex guards the maps; per-venue mutexes
// stand in for the venues row lock taken by admission.
type DB struct {
	mu       sync.RWMutex
	ids      map[string]uint64
	users    map[uint64]model.User
	tokens   map[string]model.RefreshToken
	profiles map[string]model.Profile
	venues   map[uint64]model.Venue
	bookings map[uint64]model.Booking
	canceled []model.CanceledBooking
	notes    map[uint64]model.Note

	lockMu     sync.Mutex
	venueLocks map[uint64]*sync.Mutex
}

func New() *DB {
	return &DB{
		ids:        make(map[string]uint64),
		users:      make(map[uint64]model.User),
		tokens:     make(map[string]model.RefreshToken),
		profiles:   make(map[string]model.Profile),
		venues:     make(map[uint64]model.Venue),
		bookings:   make(map[uint64]model.Booking),
		notes:      make(map[uint64]model.Note),
		venueLocks: make(map[uint64]*sync.Mutex),
	}
}

func (db *DB) Users() *Users                       { return &Users{db: db} }
func (db *DB) Tokens() *Tokens                     { return &Tokens{db: db} }
func (db *DB) Profiles() *Profiles                 { return &Profiles{db: db} }
func (db *DB) Venues() *Venues                     { return &Venues{db: db} }
func (db *DB) Bookings() *Bookings                 { return &Bookings{db: db} }
func (db *DB) CanceledBookings() *CanceledBookings { return &CanceledBookings{db: db} }
func (db *DB) Notes() *Notes                       { return &Notes{db: db} }

// nextID must be called with mu held for writing.
func (db *DB) nextID(table string) uint64 {
	db.ids[table]++
	return db.ids[table]
}

func (db *DB) venueLock(id uint64) *sync.Mutex {
	db.lockMu.Lock()
	defer db.lockMu.Unlock()
	m, ok := db.venueLocks[id]
	if !ok {
		m = &sync.Mutex{}
		db.venueLocks[id] = m
	}
	return m
}

func now() time.Time { return time.Now().UTC().Truncate(time.Second) }

// ----- users -----

type Users struct{ db *DB }

func (r *Users) Create(_ context.Context, username, email, password, role string, cost int) (uint64, error) {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	username = strings.TrimSpace(username)
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.Username == username {
			return 0, repository.ErrDuplicate
		}
	}
	ts := now()
	u := model.User{
		ID:           r.db.nextID("users"),
		Username:     username,
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	r.db.users[u.ID] = u
	return u.ID, nil
}

func (r *Users) GetByUsername(_ context.Context, username string) (model.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	username = strings.TrimSpace(username)
	for _, u := range r.db.users {
		if u.Username == username {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (r *Users) GetByID(_ context.Context, id uint64) (model.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	u, ok := r.db.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

// ----- refresh tokens -----

type Tokens struct{ db *DB }

func (r *Tokens) StoreRefresh(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.tokens[tokenHash]; ok {
		return repository.ErrDuplicate
	}
	r.db.tokens[tokenHash] = model.RefreshToken{
		ID:        r.db.nextID("refresh_tokens"),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: exp,
		CreatedAt: now(),
	}
	return nil
}

func (r *Tokens) ValidateRefresh(_ context.Context, tokenHash string) (uint64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	t, ok := r.db.tokens[tokenHash]
	if !ok || !t.Active(time.Now().UTC()) {
		return 0, repository.ErrNotFound
	}
	return t.UserID, nil
}

func (r *Tokens) RevokeByHash(_ context.Context, tokenHash string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if t, ok := r.db.tokens[tokenHash]; ok && t.RevokedAt == nil {
		ts := now()
		t.RevokedAt = &ts
		r.db.tokens[tokenHash] = t
	}
	return nil
}

func (r *Tokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	ts := now()
	for h, t := range r.db.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &ts
			r.db.tokens[h] = t
		}
	}
	return nil
}

// ----- profiles -----

type Profiles struct{ db *DB }

func (r *Profiles) Create(_ context.Context, p *model.Profile) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p.Username = strings.TrimSpace(p.Username)
	if _, ok := r.db.profiles[p.Username]; ok {
		return repository.ErrDuplicate
	}
	p.ID = r.db.nextID("profiles")
	p.CreatedAt = now()
	r.db.profiles[p.Username] = *p
	return nil
}

func (r *Profiles) GetByUsername(_ context.Context, username string) (model.Profile, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	p, ok := r.db.profiles[strings.TrimSpace(username)]
	if !ok {
		return model.Profile{}, repository.ErrNotFound
	}
	return p, nil
}

// ----- venues -----

type Venues struct{ db *DB }

func cloneVenue(v model.Venue) model.Venue {
	v.ImageURLs = slices.Clone(v.ImageURLs)
	if v.ImageURLs == nil {
		v.ImageURLs = model.StringList{}
	}
	return v
}

func (r *Venues) Create(_ context.Context, v *model.Venue) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	ts := now()
	v.ID = r.db.nextID("venues")
	v.CreatedAt, v.UpdatedAt = ts, ts
	*v = cloneVenue(*v)
	r.db.venues[v.ID] = cloneVenue(*v)
	return nil
}

func (r *Venues) GetByID(_ context.Context, id uint64) (model.Venue, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	v, ok := r.db.venues[id]
	if !ok {
		return model.Venue{}, repository.ErrNotFound
	}
	return cloneVenue(v), nil
}

func (r *Venues) List(_ context.Context, f repository.VenueFilter) ([]model.Venue, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := []model.Venue{}
	for _, v := range r.db.venues {
		if f.OwnerID != 0 && v.OwnerID != f.OwnerID {
			continue
		}
		out = append(out, cloneVenue(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Venues) Update(_ context.Context, v *model.Venue) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cur, ok := r.db.venues[v.ID]
	if !ok {
		return repository.ErrNotFound
	}
	next := cloneVenue(*v)
	next.OwnerID = cur.OwnerID
	next.CreatedAt = cur.CreatedAt
	next.UpdatedAt = now()
	r.db.venues[v.ID] = next
	*v = cloneVenue(next)
	return nil
}

func (r *Venues) Delete(_ context.Context, id uint64) error {
	lock := r.db.venueLock(id)
	lock.Lock()
	defer lock.Unlock()

	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.venues[id]; !ok {
		return repository.ErrNotFound
	}
	for _, b := range r.db.bookings {
		if b.VenueID == id {
			return repository.ErrInUse
		}
	}
	delete(r.db.venues, id)
	return nil
}

// ----- bookings -----

type Bookings struct{ db *DB }

func (r *Bookings) LockVenue(_ context.Context, venueID uint64) (repository.VenueLock, error) {
	lock := r.db.venueLock(venueID)
	lock.Lock()

	r.db.mu.RLock()
	_, ok := r.db.venues[venueID]
	r.db.mu.RUnlock()
	if !ok {
		lock.Unlock()
		return nil, repository.ErrNotFound
	}
	return &venueLock{db: r.db, venueID: venueID, mu: lock}, nil
}

type venueLock struct {
	db      *DB
	venueID uint64
	mu      *sync.Mutex
	staged  []model.Booking
	done    bool
}

func (l *venueLock) Bookings(_ context.Context) ([]model.Booking, error) {
	l.db.mu.RLock()
	defer l.db.mu.RUnlock()
	out := []model.Booking{}
	for _, b := range l.db.bookings {
		if b.VenueID == l.venueID {
			out = append(out, b)
		}
	}
	out = append(out, l.staged...)
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (l *venueLock) Insert(_ context.Context, b *model.Booking) error {
	l.db.mu.Lock()
	b.ID = l.db.nextID("bookings")
	l.db.mu.Unlock()
	b.VenueID = l.venueID
	b.CreatedAt = now()
	l.staged = append(l.staged, *b)
	return nil
}

func (l *venueLock) Commit() error {
	if l.done {
		return nil
	}
	l.done = true
	defer l.mu.Unlock()
	l.db.mu.Lock()
	defer l.db.mu.Unlock()
	for _, b := range l.staged {
		l.db.bookings[b.ID] = b
	}
	return nil
}

func (l *venueLock) Rollback() error {
	if l.done {
		return nil
	}
	l.done = true
	l.mu.Unlock()
	return nil
}

// withVenueName must be called with mu held.
func (r *Bookings) withVenueName(b model.Booking) model.Booking {
	b.VenueName = r.db.venues[b.VenueID].Name
	return b
}

func (r *Bookings) GetByID(_ context.Context, id uint64) (model.Booking, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	b, ok := r.db.bookings[id]
	if !ok {
		return model.Booking{}, repository.ErrNotFound
	}
	return r.withVenueName(b), nil
}

func (r *Bookings) List(_ context.Context, f repository.BookingFilter) ([]model.Booking, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := []model.Booking{}
	for _, b := range r.db.bookings {
		if f.VenueID != 0 && b.VenueID != f.VenueID {
			continue
		}
		if f.UserID != 0 && b.UserID != f.UserID {
			continue
		}
		out = append(out, r.withVenueName(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Bookings) Ranges(_ context.Context, venueIDs ...uint64) (map[uint64][]model.DateRange, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	want := make(map[uint64]bool, len(venueIDs))
	for _, id := range venueIDs {
		want[id] = true
	}
	out := make(map[uint64][]model.DateRange, len(venueIDs))
	for _, b := range r.db.bookings {
		if want[b.VenueID] {
			out[b.VenueID] = append(out[b.VenueID], b.Range())
		}
	}
	for id := range out {
		rs := out[id]
		sort.Slice(rs, func(i, j int) bool { return rs[i].Start.Before(rs[j].Start) })
	}
	return out, nil
}

func (r *Bookings) SetVerified(_ context.Context, id uint64, verified bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b, ok := r.db.bookings[id]
	if !ok {
		return repository.ErrNotFound
	}
	b.Verified = verified
	r.db.bookings[id] = b
	return nil
}

func (r *Bookings) Delete(_ context.Context, id uint64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.bookings[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.bookings, id)
	return nil
}

// ----- cancellation log -----

type CanceledBookings struct{ db *DB }

func (r *CanceledBookings) Create(_ context.Context, c *model.CanceledBooking) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c.ID = r.db.nextID("canceled_bookings")
	c.CreatedAt = now()
	r.db.canceled = append(r.db.canceled, *c)
	return nil
}

func (r *CanceledBookings) ListByUser(_ context.Context, userID uint64) ([]model.CanceledBooking, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := []model.CanceledBooking{}
	for i := len(r.db.canceled) - 1; i >= 0; i-- {
		if r.db.canceled[i].UserID == userID {
			out = append(out, r.db.canceled[i])
		}
	}
	return out, nil
}

func (r *CanceledBookings) ListAll(_ context.Context) ([]model.CanceledBooking, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := make([]model.CanceledBooking, 0, len(r.db.canceled))
	for i := len(r.db.canceled) - 1; i >= 0; i-- {
		out = append(out, r.db.canceled[i])
	}
	return out, nil
}

// ----- notes -----

type Notes struct{ db *DB }

func (r *Notes) Create(_ context.Context, n *model.Note) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n.ID = r.db.nextID("notes")
	n.CreatedAt = now()
	r.db.notes[n.ID] = *n
	return nil
}

func (r *Notes) ListByAuthor(_ context.Context, authorID uint64) ([]model.Note, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := []model.Note{}
	for _, n := range r.db.notes {
		if n.AuthorID == authorID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Notes) DeleteForAuthor(_ context.Context, id, authorID uint64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n, ok := r.db.notes[id]
	if !ok || n.AuthorID != authorID {
		return repository.ErrNotFound
	}
	delete(r.db.notes, id)
	return nil
}
