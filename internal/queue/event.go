// Package queue defines message payloads exchanged over the message broker
// and the background consumer for operational alerts.
package queue

// Queue names. Both are declared durable so messages survive broker restarts.
const (
	EmailQueue = "email.outbound"
	AlertQueue = "booking.failed"
)

// Email kinds understood by the mail worker.
const (
	EmailWelcome       = "welcome"
	EmailPasswordReset = "password_reset"
)

// EmailRequestedEvent asks the mail worker to deliver a transactional email.
// The message carries everything needed to render and send; the worker never
// queries the primary database. For password resets, URL embeds the raw reset
// token, which exists only here and in the recipient's inbox.
type EmailRequestedEvent struct {
	Kind        string `json:"kind"`
	To          string `json:"to"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	RequestedAt string `json:"requested_at"`
}

// BookingFailedEvent is published when an authenticated payment confirmation
// could not be reconciled into a booking. The webhook still acknowledges the
// processor, so this event is the only trail; it carries the full checkout
// reference an operator needs to replay the reconciliation.
type BookingFailedEvent struct {
	CheckoutRef   string `json:"checkout_ref"`
	TourRef       string `json:"tour_ref"`
	CustomerEmail string `json:"customer_email"`
	AmountCents   uint64 `json:"amount_cents"`
	Reason        string `json:"reason"`
	FailedAt      string `json:"failed_at"`
}
