package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venue-booking/internal/model"
)

const (
	lockVenueSQL     = `SELECT id FROM venues WHERE id = \? FOR UPDATE`
	venueBookingsSQL = `SELECT id, user_id, venue_id, start_date, end_date, verified, created_at\s+FROM bookings WHERE venue_id = \? ORDER BY start_date`
	insertBookingSQL = `INSERT INTO bookings \(user_id, venue_id, start_date, end_date, verified\) VALUES \(\?, \?, \?, \?, \?\)`
	reloadBookingSQL = `SELECT created_at FROM bookings WHERE id = \?`
)

var bookingColumns = []string{"id", "user_id", "venue_id", "start_date", "end_date", "verified", "created_at"}

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "mysql"), mock
}

func day(s string) time.Time {
	return model.MustParseDate(s).Time()
}

func TestLockVenue_MissingVenueRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery(lockVenueSQL).WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	lock, err := NewBookingRepo(db).LockVenue(context.Background(), 7)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, lock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockVenue_LockErrorRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery(lockVenueSQL).WithArgs(7).WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()

	_, err := NewBookingRepo(db).LockVenue(context.Background(), 7)
	assert.ErrorContains(t, err, "lock venue")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVenueLock_InsertThenCommit(t *testing.T) {
	db, mock := newMockDB(t)
	created := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(lockVenueSQL).WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(venueBookingsSQL).WithArgs(7).WillReturnRows(sqlmock.NewRows(bookingColumns).
		AddRow(1, 2, 7, day("2025-06-01"), day("2025-06-03"), true, created))
	mock.ExpectExec(insertBookingSQL).WithArgs(3, 7, "2025-06-04", "2025-06-05", false).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectQuery(reloadBookingSQL).WithArgs(42).WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))
	mock.ExpectCommit()

	ctx := context.Background()
	lock, err := NewBookingRepo(db).LockVenue(ctx, 7)
	require.NoError(t, err)

	existing, err := lock.Bookings(ctx)
	require.NoError(t, err)
	require.Len(t, existing, 1)
	assert.Equal(t, "2025-06-01", existing[0].StartDate.String())
	assert.Equal(t, "2025-06-03", existing[0].EndDate.String())

	b := model.Booking{UserID: 3, StartDate: model.MustParseDate("2025-06-04"), EndDate: model.MustParseDate("2025-06-05")}
	require.NoError(t, lock.Insert(ctx, &b))
	assert.Equal(t, uint64(42), b.ID)
	assert.Equal(t, uint64(7), b.VenueID)
	assert.Equal(t, created, b.CreatedAt)

	require.NoError(t, lock.Commit())
	// a deferred Rollback after Commit must not reach the driver
	assert.NoError(t, lock.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVenueLock_RollbackWithoutInsert(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery(lockVenueSQL).WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(venueBookingsSQL).WithArgs(7).WillReturnRows(sqlmock.NewRows(bookingColumns))
	mock.ExpectRollback()

	ctx := context.Background()
	lock, err := NewBookingRepo(db).LockVenue(ctx, 7)
	require.NoError(t, err)
	existing, err := lock.Bookings(ctx)
	require.NoError(t, err)
	assert.Empty(t, existing)

	require.NoError(t, lock.Rollback())
	assert.NoError(t, lock.Rollback(), "second rollback is a no-op")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVenueDelete(t *testing.T) {
	const countSQL = `SELECT COUNT\(\*\) FROM bookings WHERE venue_id = \?`

	t.Run("in use rolls back", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lockVenueSQL).WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
		mock.ExpectQuery(countSQL).WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
		mock.ExpectRollback()

		assert.ErrorIs(t, NewVenueRepo(db).Delete(context.Background(), 7), ErrInUse)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing venue rolls back", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lockVenueSQL).WithArgs(9).WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		assert.ErrorIs(t, NewVenueRepo(db).Delete(context.Background(), 9), ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unreferenced venue commits", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lockVenueSQL).WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
		mock.ExpectQuery(countSQL).WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
		mock.ExpectExec(`DELETE FROM venues WHERE id = \?`).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, NewVenueRepo(db).Delete(context.Background(), 7))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
