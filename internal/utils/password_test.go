package utils_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/roamio/tour-booking/internal/utils"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := utils.HashPassword("correct horse battery", bcrypt.MinCost)
	require.NoError(t, err)
	require.NotEqual(t, "correct horse battery", hash)

	assert.True(t, utils.VerifyPassword(hash, "correct horse battery"))
	assert.False(t, utils.VerifyPassword(hash, "correct horse battery "))
	assert.False(t, utils.VerifyPassword(hash, ""))
	assert.False(t, utils.VerifyPassword("not-a-bcrypt-hash", "correct horse battery"))
}

// Out-of-range costs fall back to the library default rather than failing.
func TestHashPasswordCostFallback(t *testing.T) {
	for _, cost := range []int{0, -1, bcrypt.MaxCost + 1} {
		hash, err := utils.HashPassword("pass12345", cost)
		require.NoError(t, err, cost)

		got, err := bcrypt.Cost([]byte(hash))
		require.NoError(t, err)
		assert.Equal(t, bcrypt.DefaultCost, got, cost)
	}
}

func TestHashPasswordSalted(t *testing.T) {
	a, err := utils.HashPassword("pass12345", bcrypt.MinCost)
	require.NoError(t, err)
	b, err := utils.HashPassword("pass12345", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "$2a$"))
}
