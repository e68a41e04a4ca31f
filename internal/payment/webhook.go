package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EventCheckoutCompleted is the only event type the reconciler acts on; every
// other authenticated event is acknowledged and ignored.
const EventCheckoutCompleted = "checkout.session.completed"

// Tolerance bounds how old a signed confirmation may be. It defends against
// replaying a captured webhook long after the fact while allowing for clock
// skew and delivery delay.
const Tolerance = 5 * time.Minute

// ErrBadSignature is returned for any signature failure: malformed header,
// digest mismatch or a timestamp outside the tolerance window. The cases are
// deliberately indistinguishable to the caller.
var ErrBadSignature = errors.New("webhook signature verification failed")

// Event is a confirmation notification from the processor.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object CheckoutObject `json:"object"`
	} `json:"data"`
}

// CheckoutObject is the completed checkout session embedded in the event.
// AmountTotal is the amount actually paid and becomes the booking price.
type CheckoutObject struct {
	ID                string `json:"id"`
	ClientReferenceID string `json:"client_reference_id"`
	CustomerEmail     string `json:"customer_email"`
	AmountTotal       uint64 `json:"amount_total"`
}

// ConstructEvent authenticates a raw webhook payload against its signature
// header and unmarshals it. The header format is "t=<unix>,v1=<hex>", where
// v1 is HMAC-SHA256 over "<t>.<payload>" with the shared webhook secret.
// Verification needs the exact body bytes, so callers must pass the request
// body unparsed.
func ConstructEvent(payload []byte, sigHeader, secret string) (Event, error) {
	ts, sigs, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return Event{}, ErrBadSignature
	}

	if d := time.Since(time.Unix(ts, 0)); d > Tolerance || d < -Tolerance {
		return Event{}, ErrBadSignature
	}

	expected := computeSignature(payload, secret, ts)
	match := false
	for _, s := range sigs {
		if hmac.Equal([]byte(s), []byte(expected)) {
			match = true
		}
	}
	if !match {
		return Event{}, ErrBadSignature
	}

	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, fmt.Errorf("webhook payload: %w", err)
	}
	return ev, nil
}

// parseSignatureHeader splits "t=...,v1=...,v1=..." into the timestamp and
// the candidate signatures. Multiple v1 entries appear during secret rolls.
func parseSignatureHeader(header string) (ts int64, sigs []string, err error) {
	ts = -1
	for _, pair := range strings.Split(header, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(pair), "=")
		if !found {
			return 0, nil, errors.New("malformed signature header")
		}
		switch k {
		case "t":
			if ts, err = strconv.ParseInt(v, 10, 64); err != nil {
				return 0, nil, err
			}
		case "v1":
			sigs = append(sigs, v)
		}
	}
	if ts < 0 || len(sigs) == 0 {
		return 0, nil, errors.New("missing signature components")
	}
	return ts, sigs, nil
}

func computeSignature(payload []byte, secret string, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
