// Package repository implements data access against MySQL. Sentinel errors
// let handlers distinguish failure scenarios without leaking driver detail.
package repository

import (
	"errors"
	"strings"
)

// ErrEmailExists is returned when an insert or update collides with the
// unique email index. Handlers translate this into an HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrNameExists is returned when a tour insert or update collides with the
// unique name index.
var ErrNameExists = errors.New("name already exists")

// ErrDuplicateCheckout is returned when a booking insert collides with the
// unique checkout reference. The webhook path treats it as success: the
// booking for that checkout already exists.
var ErrDuplicateCheckout = errors.New("checkout already recorded")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers translate this into an HTTP 403.
var ErrForbidden = errors.New("forbidden")

// isDuplicateKey detects MySQL error 1062 (duplicate entry) without depending
// on the driver's error type.
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
