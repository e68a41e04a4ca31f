// Package utils provides helper functions for token creation and hashing.
package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionToken is a signed, time-limited credential proving identity without
// any server-side storage. Validity is entirely a function of the signature,
// the expiry and the owning user's password_changed_at timestamp.
type SessionToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // UTC expiration time
}

// SessionClaims is what a verified session token asserts: who, and since when.
type SessionClaims struct {
	UserID   uint64
	IssuedAt time.Time // second resolution, as encoded in the token
}

var errInvalidToken = errors.New("invalid session token")

// NewSessionToken builds and signs an HS256 JWT for a user. The claims are
// sub (user id), iat and exp.
func NewSessionToken(secret string, userID uint64, ttlMin int) (SessionToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": exp.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}

// VerifySessionToken checks the signature and expiry of a session token and
// returns its claims. The error is deliberately uniform: callers surface the
// same generic authentication failure whether the signature, the shape or the
// expiry was at fault.
func VerifySessionToken(secret, raw string) (SessionClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return SessionClaims{}, errInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return SessionClaims{}, errInvalidToken
	}
	sub, ok := claims["sub"].(float64)
	if !ok || sub <= 0 {
		return SessionClaims{}, errInvalidToken
	}
	iat, ok := claims["iat"].(float64)
	if !ok {
		return SessionClaims{}, errInvalidToken
	}
	return SessionClaims{
		UserID:   uint64(sub),
		IssuedAt: time.Unix(int64(iat), 0).UTC(),
	}, nil
}

// ResetTokenTTL is how long a password-reset token stays valid.
const ResetTokenTTL = 10 * time.Minute

// NewResetToken returns a high-entropy raw token shown to the user exactly
// once. Only its hash is ever persisted.
func NewResetToken() (string, error) {
	return randomHex(32) // 32 bytes -> 64 hex chars
}

// HashResetRaw returns the SHA-256 hash of a raw reset token as a hex string.
// Storing only the hash means a leaked database row cannot be replayed as a
// reset capability.
func HashResetRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
