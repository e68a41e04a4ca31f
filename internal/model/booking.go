package model

import "time"

// Booking records a purchased tour. PriceCents is the amount carried by the
// payment confirmation, not the tour's current price; tour prices may change
// after purchase. CheckoutRef is the payment processor's session reference
// and is unique, which makes booking creation idempotent per checkout.
type Booking struct {
	ID          uint64    // bookings.id
	TourID      uint64    // bookings.tour_id
	UserID      uint64    // bookings.user_id
	PriceCents  uint64    // bookings.price_cents
	CheckoutRef string    // bookings.checkout_ref
	Paid        bool      // bookings.paid
	CreatedAt   time.Time // bookings.created_at
}
