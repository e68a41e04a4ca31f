// Package apperr defines the operational error taxonomy shared by handlers
// and middleware. Errors created here carry an HTTP status and a message that
// is safe to return to the client verbatim. Anything else that reaches the
// error handler is treated as unexpected: it is logged internally and the
// client only sees a generic failure message.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an operational failure.
type Kind int

const (
	// Validation covers malformed or policy-violating client input.
	Validation Kind = iota + 1
	// Auth covers missing, invalid or expired credentials and signatures.
	Auth
	// Permission means authenticated but not entitled.
	Permission
	// NotFound means the addressed resource does not exist.
	NotFound
	// Conflict covers uniqueness violations.
	Conflict
	// Server covers infrastructure failures we still want to describe safely.
	Server
)

// Error is an operational error: deliberately raised, client-safe message.
type Error struct {
	Kind    Kind
	Message string
	Err     error // optional underlying cause, never shown to clients
}

// New creates an operational error with a client-safe message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches an underlying cause to an operational error. The cause is
// available to logs via Unwrap but never rendered in responses.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status maps the kind onto an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case Validation:
		return http.StatusBadRequest
	case Auth:
		return http.StatusUnauthorized
	case Permission:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// As extracts an *Error from an error chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// IsKind reports whether err is an operational error of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}
