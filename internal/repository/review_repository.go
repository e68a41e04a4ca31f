package repository

import (
	"context"
	"database/sql"

	"github.com/roamio/tour-booking/internal/model"
)

type ReviewRepo struct{ DB *sql.DB }

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{DB: db} }

// Create inserts a review for a tour.
func (r *ReviewRepo) Create(ctx context.Context, rev model.Review) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO reviews (tour_id, user_id, review, rating) VALUES (?,?,?,?)",
		rev.TourID, rev.UserID, rev.Review, rev.Rating)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// ListByTour returns a tour's reviews, newest first.
func (r *ReviewRepo) ListByTour(ctx context.Context, tourID uint64) ([]model.Review, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id,tour_id,user_id,review,rating,created_at FROM reviews
		WHERE tour_id=? ORDER BY created_at DESC, id ASC`, tourID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Review
	for rows.Next() {
		var rev model.Review
		if err := rows.Scan(&rev.ID, &rev.TourID, &rev.UserID, &rev.Review,
			&rev.Rating, &rev.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rev)
	}
	return out, rows.Err()
}

// Delete removes a review if the caller owns it or holds the admin role.
func (r *ReviewRepo) Delete(ctx context.Context, id, callerID uint64, callerRole model.Role) error {
	var ownerID uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id FROM reviews WHERE id=? LIMIT 1", id).Scan(&ownerID)
	if err != nil {
		return err
	}
	if ownerID != callerID && callerRole != model.RoleAdmin {
		return ErrForbidden
	}
	_, err = r.DB.ExecContext(ctx, "DELETE FROM reviews WHERE id=?", id)
	return err
}
