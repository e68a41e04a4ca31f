package handler

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/roamio/tour-booking/internal/apperr"
	"github.com/roamio/tour-booking/internal/config"
	"github.com/roamio/tour-booking/internal/metrics"
	"github.com/roamio/tour-booking/internal/middleware"
	"github.com/roamio/tour-booking/internal/model"
	"github.com/roamio/tour-booking/internal/payment"
	"github.com/roamio/tour-booking/internal/queue"
	"github.com/roamio/tour-booking/internal/repository"
)

// CheckoutCreator opens hosted checkout sessions. *payment.Client is the
// production implementation; tests substitute fakes.
type CheckoutCreator interface {
	CreateCheckoutSession(ctx context.Context, p payment.CheckoutParams) (payment.CheckoutSession, error)
}

// AlertSink receives reconciliation failures that were already acknowledged
// to the processor.
type AlertSink interface {
	BookingFailed(ctx context.Context, ev queue.BookingFailedEvent) error
}

// BookingHandler owns the purchase flow: opening checkout sessions, turning
// signed payment confirmations into bookings, and the admin booking CRUD.
type BookingHandler struct {
	Cfg      config.Config
	Tours    *repository.TourRepo
	Users    *repository.UserRepo
	Bookings *repository.BookingRepo
	Pay      CheckoutCreator
	Alerts   AlertSink
}

func NewBookingHandler(cfg config.Config, tours *repository.TourRepo, users *repository.UserRepo,
	bookings *repository.BookingRepo, pay CheckoutCreator, alerts AlertSink) *BookingHandler {
	return &BookingHandler{Cfg: cfg, Tours: tours, Users: users, Bookings: bookings, Pay: pay, Alerts: alerts}
}

type checkoutRequest struct {
	TourID uint64 `json:"tour_id"`
}

// CreateCheckoutSession registers a payment intent for the logged-in user and
// returns the processor's redirect URL. No booking exists yet; the booking is
// created only when the signed confirmation arrives on the webhook.
func (h *BookingHandler) CreateCheckoutSession(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return apperr.New(apperr.Auth, "You are not logged in. Please log in to get access.")
	}

	var req checkoutRequest
	if err := c.Bind(&req); err != nil || req.TourID == 0 {
		return apperr.New(apperr.Validation, "Please provide a tour id.")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.Tours.GetByID(ctx, req.TourID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.NotFound, "No tour found with that ID.")
		}
		return apperr.Wrap(apperr.Server, "Could not load the tour.", err)
	}

	sess, err := h.Pay.CreateCheckoutSession(ctx, payment.CheckoutParams{
		TourID:        t.ID,
		TourName:      t.Name,
		TourSummary:   t.Summary,
		AmountCents:   t.PriceCents,
		CustomerEmail: u.Email,
		SuccessURL:    h.Cfg.ClientBaseURL + "/my-tours?alert=booking",
		CancelURL:     h.Cfg.ClientBaseURL + "/tour/" + t.Slug,
	})
	if err != nil {
		return apperr.Wrap(apperr.Server, "Could not create a checkout session.", err)
	}
	return respondData(c, http.StatusCreated, echo.Map{"session": sess})
}

// Webhook receives signed confirmation events from the payment processor.
// The signature is verified over the exact body bytes; a failed check is a
// 400 with zero side effects. Authenticated events are always acknowledged
// with a 200, including those the reconciliation could not turn into a
// booking: the processor retries signature failures, not business failures,
// so unreconciled confirmations go to the alert queue and the failure counter
// instead. A signed body that does not parse as an event is still a 400: it
// carries no event to acknowledge, and the processor never sends one.
func (h *BookingHandler) Webhook(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
	if err != nil {
		return apperr.Wrap(apperr.Validation, "Could not read the webhook body.", err)
	}

	ev, err := payment.ConstructEvent(payload,
		c.Request().Header.Get("Stripe-Signature"), h.Cfg.PaymentWebhookSecret)
	if err != nil {
		if errors.Is(err, payment.ErrBadSignature) {
			metrics.WebhookSignatureFailures.Inc()
			return apperr.New(apperr.Validation, "Webhook signature verification failed.")
		}
		return apperr.Wrap(apperr.Validation, "Invalid webhook payload.", err)
	}
	metrics.WebhookEvents.WithLabelValues(ev.Type).Inc()

	if ev.Type != payment.EventCheckoutCompleted {
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	obj := ev.Data.Object

	tourID, err := strconv.ParseUint(obj.ClientReferenceID, 10, 64)
	if err != nil || tourID == 0 {
		return h.ackFailed(c, ctx, obj, "invalid client_reference_id")
	}

	u, err := h.Users.GetByEmail(ctx, obj.CustomerEmail)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return h.ackFailed(c, ctx, obj, "no user with the checkout email")
		}
		return h.ackFailed(c, ctx, obj, "user lookup failed: "+err.Error())
	}

	if _, err := h.Bookings.CreateFromCheckout(ctx, tourID, u.ID, obj.AmountTotal, obj.ID); err != nil {
		// A replayed confirmation is a success: the booking already exists.
		if errors.Is(err, repository.ErrDuplicateCheckout) {
			return c.JSON(http.StatusOK, echo.Map{"received": true})
		}
		return h.ackFailed(c, ctx, obj, "booking insert failed: "+err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}

// ackFailed acknowledges a confirmation that could not be reconciled. The
// alert event and the counter are the only trail, so the publish error itself
// is logged rather than swallowed.
func (h *BookingHandler) ackFailed(c echo.Context, ctx context.Context, obj payment.CheckoutObject, reason string) error {
	metrics.WebhookBookingFailures.Inc()
	log.Printf("webhook: checkout %s not reconciled: %s", obj.ID, reason)
	if err := h.Alerts.BookingFailed(ctx, queue.BookingFailedEvent{
		CheckoutRef:   obj.ID,
		TourRef:       obj.ClientReferenceID,
		CustomerEmail: obj.CustomerEmail,
		AmountCents:   obj.AmountTotal,
		Reason:        reason,
		FailedAt:      time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		log.Printf("webhook: alert publish for checkout %s failed: %v", obj.ID, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}

type bookingPayload struct {
	ID          uint64    `json:"id"`
	TourID      uint64    `json:"tour_id"`
	UserID      uint64    `json:"user_id"`
	PriceCents  uint64    `json:"price_cents"`
	CheckoutRef string    `json:"checkout_ref"`
	Paid        bool      `json:"paid"`
	CreatedAt   time.Time `json:"created_at"`
}

func toBookingPayload(b model.Booking) bookingPayload {
	return bookingPayload{ID: b.ID, TourID: b.TourID, UserID: b.UserID,
		PriceCents: b.PriceCents, CheckoutRef: b.CheckoutRef, Paid: b.Paid,
		CreatedAt: b.CreatedAt}
}

type createBookingRequest struct {
	TourID     uint64 `json:"tour_id"`
	UserID     uint64 `json:"user_id"`
	PriceCents uint64 `json:"price_cents"`
	Paid       *bool  `json:"paid"`
}

// Create records a booking entered by an admin, outside the checkout flow.
// The checkout reference is generated locally so the row still satisfies the
// one-row-per-reference constraint the webhook relies on.
func (h *BookingHandler) Create(c echo.Context) error {
	var req createBookingRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.Validation, "Invalid request body.")
	}
	if req.TourID == 0 || req.UserID == 0 || req.PriceCents == 0 {
		return apperr.New(apperr.Validation, "A booking needs a tour, a user and a price.")
	}
	paid := true
	if req.Paid != nil {
		paid = *req.Paid
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	id, err := h.Bookings.Create(ctx, model.Booking{
		TourID: req.TourID, UserID: req.UserID, PriceCents: req.PriceCents,
		CheckoutRef: "manual_" + uuid.NewString(), Paid: paid,
	})
	if err != nil {
		return apperr.Wrap(apperr.Server, "Could not create the booking.", err)
	}

	b, err := h.Bookings.GetByID(ctx, id)
	if err != nil {
		return apperr.Wrap(apperr.Server, "Could not load the created booking.", err)
	}
	return respondData(c, http.StatusCreated, echo.Map{"booking": toBookingPayload(b)})
}

type updateBookingRequest struct {
	PriceCents *uint64 `json:"price_cents"`
	Paid       *bool   `json:"paid"`
}

// Update rewrites a booking's price and paid flag. Absent fields keep their
// stored values.
func (h *BookingHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req updateBookingRequest
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.Validation, "Invalid request body.")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Bookings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.NotFound, "No booking found with that ID.")
		}
		return apperr.Wrap(apperr.Server, "Could not load the booking.", err)
	}
	if req.PriceCents != nil {
		if *req.PriceCents == 0 {
			return apperr.New(apperr.Validation, "A booking must have a price.")
		}
		b.PriceCents = *req.PriceCents
	}
	if req.Paid != nil {
		b.Paid = *req.Paid
	}

	if err := h.Bookings.Update(ctx, id, b.PriceCents, b.Paid); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.NotFound, "No booking found with that ID.")
		}
		return apperr.Wrap(apperr.Server, "Could not update the booking.", err)
	}
	return respondData(c, http.StatusOK, echo.Map{"booking": toBookingPayload(b)})
}

// List serves bookings newest-first for the admin surface.
func (h *BookingHandler) List(c echo.Context) error {
	limit, page := 10, 1
	if n, err := strconv.Atoi(c.QueryParam("limit")); err == nil && n > 0 {
		limit = n
	}
	if n, err := strconv.Atoi(c.QueryParam("page")); err == nil && n > 0 {
		page = n
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	bookings, err := h.Bookings.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return apperr.Wrap(apperr.Server, "Could not list bookings.", err)
	}

	out := make([]bookingPayload, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingPayload(b))
	}
	return respondCollection(c, http.StatusOK, len(out), echo.Map{"bookings": out})
}

// Get serves one booking by id.
func (h *BookingHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Bookings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.NotFound, "No booking found with that ID.")
		}
		return apperr.Wrap(apperr.Server, "Could not load the booking.", err)
	}
	return respondData(c, http.StatusOK, echo.Map{"booking": toBookingPayload(b)})
}

// Delete removes a booking.
func (h *BookingHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Bookings.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.NotFound, "No booking found with that ID.")
		}
		return apperr.Wrap(apperr.Server, "Could not delete the booking.", err)
	}
	return c.NoContent(http.StatusNoContent)
}
