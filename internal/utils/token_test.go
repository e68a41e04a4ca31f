package utils_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamio/tour-booking/internal/utils"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	tok, err := utils.NewSessionToken("secret-a", 42, 60)
	require.NoError(t, err)
	require.NotEmpty(t, tok.Token)

	claims, err := utils.VerifySessionToken("secret-a", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID)
	assert.WithinDuration(t, time.Now().UTC(), claims.IssuedAt, 5*time.Second)
}

func TestVerifySessionToken_WrongSecret(t *testing.T) {
	tok, err := utils.NewSessionToken("secret-a", 42, 60)
	require.NoError(t, err)

	_, err = utils.VerifySessionToken("secret-b", tok.Token)
	require.Error(t, err)
}

func TestVerifySessionToken_Expired(t *testing.T) {
	tok, err := utils.NewSessionToken("secret-a", 42, -1)
	require.NoError(t, err)

	_, err = utils.VerifySessionToken("secret-a", tok.Token)
	require.Error(t, err)
}

func TestVerifySessionToken_Garbage(t *testing.T) {
	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		_, err := utils.VerifySessionToken("secret-a", raw)
		require.Error(t, err, raw)
	}
}

func TestResetToken_HashOnlyComparable(t *testing.T) {
	raw, err := utils.NewResetToken()
	require.NoError(t, err)
	assert.Len(t, raw, 64)

	other, err := utils.NewResetToken()
	require.NoError(t, err)
	assert.NotEqual(t, raw, other)

	// Hashing is stable and never echoes the raw value.
	assert.Equal(t, utils.HashResetRaw(raw), utils.HashResetRaw(raw))
	assert.NotEqual(t, raw, utils.HashResetRaw(raw))
	assert.Len(t, utils.HashResetRaw(raw), 64)
}
