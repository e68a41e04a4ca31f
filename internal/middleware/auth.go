// Package middleware provides shared request processing: authentication,
// role enforcement and rate limiting.
package middleware

import (
	"context"
	"database/sql"
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/roamio/tour-booking/internal/apperr"
	"github.com/roamio/tour-booking/internal/model"
	"github.com/roamio/tour-booking/internal/utils"
)

// CookieName is the session cookie written by the auth handlers and read as
// the fallback token source.
const CookieName = "jwt"

// userContextKey is the context slot holding the authenticated user. Access
// goes through SetCurrentUser/CurrentUser so handlers never touch the raw key
// or depend on untyped context values.
const userContextKey = "auth.user"

// UserLoader resolves a token subject to a live user record.
// *repository.UserRepo satisfies it; tests substitute fakes.
type UserLoader interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// SetCurrentUser attaches the authenticated user to the request context.
func SetCurrentUser(c echo.Context, u *model.User) { c.Set(userContextKey, u) }

// CurrentUser returns the user attached by Protect, if any.
func CurrentUser(c echo.Context) (*model.User, bool) {
	u, ok := c.Get(userContextKey).(*model.User)
	return u, ok && u != nil
}

// Protect returns the authentication gate applied to protected routes. The
// token is taken from the Authorization bearer header, falling back to the
// session cookie. A request passes only if the signature and expiry verify,
// the referenced user still exists, and the token was not issued before the
// user's last password change. Both timestamps are compared at whole-second
// resolution: token issue times carry seconds only, while password change
// times may carry sub-second precision, and a token issued within the same
// second as the change must stay valid.
func Protect(secret string, users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := extractToken(c)
			if raw == "" {
				return apperr.New(apperr.Auth, "You are not logged in. Please log in to get access.")
			}

			claims, err := utils.VerifySessionToken(secret, raw)
			if err != nil {
				return apperr.New(apperr.Auth, "Invalid token. Please log in again.")
			}

			u, err := users.GetByID(c.Request().Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return apperr.New(apperr.Auth, "The user belonging to this token no longer exists.")
				}
				return apperr.Wrap(apperr.Server, "Could not verify your session.", err)
			}

			if u.PasswordChangedAt.Valid &&
				claims.IssuedAt.Unix() < u.PasswordChangedAt.Time.Unix() {
				return apperr.New(apperr.Auth, "User recently changed the password. Please log in again.")
			}

			SetCurrentUser(c, &u)
			return next(c)
		}
	}
}

func extractToken(c echo.Context) string {
	auth := c.Request().Header.Get("Authorization")
	if len(auth) > 7 && auth[:7] == "Bearer " {
		return auth[7:]
	}
	if cookie, err := c.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}
