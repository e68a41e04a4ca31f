// Package metrics exposes prometheus counters for the payment confirmation
// path. The webhook always acknowledges authenticated events, so these
// counters (together with the booking.failed queue) are where persistent
// reconciliation failures surface.
package metrics

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// WebhookEvents counts authenticated webhook deliveries by event type.
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Authenticated payment webhook events received, by type.",
	}, []string{"type"})

	// WebhookSignatureFailures counts deliveries rejected at the signature
	// check.
	WebhookSignatureFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webhook_signature_failures_total",
		Help: "Payment webhook deliveries with an invalid signature.",
	})

	// WebhookBookingFailures counts completed checkouts that could not be
	// reconciled into a booking. Non-zero values demand operator attention:
	// the processor was already acknowledged.
	WebhookBookingFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webhook_booking_failures_total",
		Help: "Completed checkout events acknowledged but not reconciled into a booking.",
	})
)

// Handler serves the prometheus scrape endpoint.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
