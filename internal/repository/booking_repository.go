package repository

import (
	"context"
	"database/sql"

	"github.com/roamio/tour-booking/internal/model"
)

const bookingSelect = `SELECT id,tour_id,user_id,price_cents,checkout_ref,paid,
	created_at FROM bookings`

type BookingRepo struct{ DB *sql.DB }

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{DB: db} }

// CreateFromCheckout records a confirmed payment as a booking. The unique
// index on checkout_ref makes the operation idempotent: replaying the same
// confirmation yields ErrDuplicateCheckout instead of a second row, and the
// price is the confirmed amount, never re-read from the tour.
func (r *BookingRepo) CreateFromCheckout(ctx context.Context, tourID, userID, priceCents uint64, checkoutRef string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO bookings (tour_id, user_id, price_cents, checkout_ref) VALUES (?,?,?,?)",
		tourID, userID, priceCents, checkoutRef)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrDuplicateCheckout
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Create inserts an admin-entered booking. Unlike CreateFromCheckout the
// caller supplies every field, including the checkout reference.
func (r *BookingRepo) Create(ctx context.Context, b model.Booking) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO bookings (tour_id, user_id, price_cents, checkout_ref, paid) VALUES (?,?,?,?,?)",
		b.TourID, b.UserID, b.PriceCents, b.CheckoutRef, b.Paid)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrDuplicateCheckout
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Update rewrites the mutable fields of a booking. Returns sql.ErrNoRows when
// the id does not exist.
func (r *BookingRepo) Update(ctx context.Context, id, priceCents uint64, paid bool) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE bookings SET price_cents=?, paid=? WHERE id=?", priceCents, paid, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetByID fetches a booking by id.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx, bookingSelect+" WHERE id=? LIMIT 1", id))
}

// List returns bookings newest-first for the admin surface.
func (r *BookingRepo) List(ctx context.Context, limit, offset int) ([]model.Booking, error) {
	rows, err := r.DB.QueryContext(ctx,
		bookingSelect+" ORDER BY created_at DESC, id ASC LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(&b.ID, &b.TourID, &b.UserID, &b.PriceCents,
			&b.CheckoutRef, &b.Paid, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Delete removes a booking. Returns sql.ErrNoRows when nothing was deleted.
func (r *BookingRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM bookings WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *BookingRepo) scanOne(row *sql.Row) (model.Booking, error) {
	var b model.Booking
	err := row.Scan(&b.ID, &b.TourID, &b.UserID, &b.PriceCents,
		&b.CheckoutRef, &b.Paid, &b.CreatedAt)
	return b, err
}
