package repository_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamio/tour-booking/internal/repository"
)

func newBookingRepo(t *testing.T) (*repository.BookingRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return repository.NewBookingRepo(db), mock
}

func TestBookingRepoCreateFromCheckout(t *testing.T) {
	repo, mock := newBookingRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO bookings (tour_id, user_id, price_cents, checkout_ref) VALUES (?,?,?,?)")).
		WithArgs(uint64(2), uint64(7), uint64(39700), "cs_test_1").
		WillReturnResult(sqlmock.NewResult(11, 1))

	id, err := repo.CreateFromCheckout(context.Background(), 2, 7, 39700, "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, uint64(11), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A replayed confirmation hits the unique checkout_ref index and surfaces as
// ErrDuplicateCheckout, which the webhook treats as success.
func TestBookingRepoCreateFromCheckoutReplay(t *testing.T) {
	repo, mock := newBookingRepo(t)

	mock.ExpectExec("INSERT INTO bookings").WillReturnError(errDuplicate)

	_, err := repo.CreateFromCheckout(context.Background(), 2, 7, 39700, "cs_test_1")
	assert.ErrorIs(t, err, repository.ErrDuplicateCheckout)
}
