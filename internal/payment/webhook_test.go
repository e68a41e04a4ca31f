package payment

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test"

func signedHeader(payload []byte, secret string, at time.Time) string {
	ts := at.Unix()
	return fmt.Sprintf("t=%d,v1=%s", ts, computeSignature(payload, secret, ts))
}

func completedPayload() []byte {
	return []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_abc123",
			"client_reference_id": "7",
			"customer_email": "ann@x.com",
			"amount_total": 49700
		}}
	}`)
}

func TestConstructEvent_Valid(t *testing.T) {
	payload := completedPayload()
	ev, err := ConstructEvent(payload, signedHeader(payload, testSecret, time.Now()), testSecret)
	require.NoError(t, err)

	assert.Equal(t, EventCheckoutCompleted, ev.Type)
	assert.Equal(t, "cs_abc123", ev.Data.Object.ID)
	assert.Equal(t, "7", ev.Data.Object.ClientReferenceID)
	assert.Equal(t, "ann@x.com", ev.Data.Object.CustomerEmail)
	assert.Equal(t, uint64(49700), ev.Data.Object.AmountTotal)
}

func TestConstructEvent_TamperedPayload(t *testing.T) {
	payload := completedPayload()
	header := signedHeader(payload, testSecret, time.Now())

	tampered := append([]byte{}, payload...)
	tampered[len(tampered)-2] = ' '

	_, err := ConstructEvent(tampered, header, testSecret)
	require.ErrorIs(t, err, ErrBadSignature)
}

func TestConstructEvent_WrongSecret(t *testing.T) {
	payload := completedPayload()
	header := signedHeader(payload, "whsec_other", time.Now())

	_, err := ConstructEvent(payload, header, testSecret)
	require.ErrorIs(t, err, ErrBadSignature)
}

func TestConstructEvent_StaleTimestamp(t *testing.T) {
	payload := completedPayload()
	header := signedHeader(payload, testSecret, time.Now().Add(-Tolerance-time.Minute))

	_, err := ConstructEvent(payload, header, testSecret)
	require.ErrorIs(t, err, ErrBadSignature)
}

func TestConstructEvent_MalformedHeader(t *testing.T) {
	payload := completedPayload()
	for _, header := range []string{"", "t=notanumber,v1=aa", "v1=aa", "t=123", "garbage"} {
		_, err := ConstructEvent(payload, header, testSecret)
		require.ErrorIs(t, err, ErrBadSignature, header)
	}
}

func TestConstructEvent_SecondSignatureAccepted(t *testing.T) {
	// During a secret roll the processor sends one v1 per active secret.
	payload := completedPayload()
	ts := time.Now().Unix()
	header := fmt.Sprintf("t=%d,v1=%s,v1=%s",
		ts,
		computeSignature(payload, "whsec_old", ts),
		computeSignature(payload, testSecret, ts))

	_, err := ConstructEvent(payload, header, testSecret)
	require.NoError(t, err)
}
