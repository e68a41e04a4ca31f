package model

import "time"

// Review mirrors a row of the `reviews` table. Reviews are parented to a tour
// and authored by a user.
type Review struct {
	ID        uint64    // reviews.id
	TourID    uint64    // reviews.tour_id
	UserID    uint64    // reviews.user_id
	Review    string    // reviews.review
	Rating    uint8     // reviews.rating (1..5)
	CreatedAt time.Time // reviews.created_at
}
