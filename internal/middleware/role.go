package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/roamio/tour-booking/internal/apperr"
	"github.com/roamio/tour-booking/internal/model"
)

// RequireRole returns the authorization gate, composed after Protect on
// routes that need it. It is a pure membership check of the authenticated
// user's role against the allowed set; "not logged in" (401, from Protect)
// and "logged in but not permitted" (403, here) stay distinct failures.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := CurrentUser(c)
			if !ok {
				return apperr.New(apperr.Auth, "You are not logged in. Please log in to get access.")
			}
			if !u.Role.Valid() || !allowed[u.Role] {
				return apperr.New(apperr.Permission, "You do not have permission to perform this action.")
			}
			return next(c)
		}
	}
}
