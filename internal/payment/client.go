// Package payment wraps the external payment processor behind a narrow
// contract: creating hosted checkout sessions and authenticating the signed
// confirmation events the processor posts back. Everything else about the
// processor is opaque to the rest of the application.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CheckoutParams carries everything the processor needs to build a hosted
// checkout page. AmountCents is the tour's price at intent time; the booking
// later uses the amount echoed back in the confirmation, not this value.
type CheckoutParams struct {
	TourID        uint64
	TourName      string
	TourSummary   string
	AmountCents   uint64
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// CheckoutSession is the processor's reference to a pending purchase.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Client talks to the processor's REST API.
type Client struct {
	apiBase   string
	secretKey string
	http      *http.Client
}

func NewClient(apiBase, secretKey string) *Client {
	return &Client{
		apiBase:   strings.TrimSuffix(apiBase, "/"),
		secretKey: secretKey,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateCheckoutSession registers a payment intent with the processor and
// returns the session reference plus the redirect target for the client. No
// booking exists at this point; booking creation happens only on the signed
// confirmation event.
func (c *Client) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("client_reference_id", strconv.FormatUint(p.TourID, 10))
	form.Set("customer_email", p.CustomerEmail)
	form.Set("success_url", p.SuccessURL)
	form.Set("cancel_url", p.CancelURL)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", "usd")
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatUint(p.AmountCents, 10))
	form.Set("line_items[0][price_data][product_data][name]", p.TourName+" Tour")
	form.Set("line_items[0][price_data][product_data][description]", p.TourSummary)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBase+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return CheckoutSession{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	// Retries of a timed-out create must not open a second session.
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return CheckoutSession{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return CheckoutSession{}, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return CheckoutSession{}, fmt.Errorf("payment api: status %d", resp.StatusCode)
	}

	var sess CheckoutSession
	if err := json.Unmarshal(body, &sess); err != nil {
		return CheckoutSession{}, fmt.Errorf("payment api: decode session: %w", err)
	}
	if sess.ID == "" {
		return CheckoutSession{}, fmt.Errorf("payment api: session without id")
	}
	return sess, nil
}
