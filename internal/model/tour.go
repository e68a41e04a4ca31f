package model

import "time"

// Tour mirrors a row of the `tours` table. Prices are stored in cents to
// avoid floating point drift; the booking snapshot copies this value at
// purchase time.
type Tour struct {
	ID              uint64    // tours.id
	Name            string    // tours.name
	Slug            string    // tours.slug
	DurationDays    uint32    // tours.duration_days
	MaxGroupSize    uint32    // tours.max_group_size
	Difficulty      string    // tours.difficulty (easy|medium|difficult)
	RatingsAverage  float64   // tours.ratings_average
	RatingsQuantity uint32    // tours.ratings_quantity
	PriceCents      uint64    // tours.price_cents
	Summary         string    // tours.summary
	Description     string    // tours.description
	ImageCover      string    // tours.image_cover
	CreatedAt       time.Time // tours.created_at
}
