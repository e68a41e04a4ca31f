// Package handler implements the HTTP endpoints. Every JSON response uses the
// same envelope: "status" plus either "data" or "message"; collection
// responses additionally carry a "results" count. Failures are returned as
// errors and rendered by the centralized apperr handler.
package handler

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
)

const dbTimeout = 5 * time.Second

// reqCtx bounds the duration of database and broker work for one request.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

func respondData(c echo.Context, status int, data echo.Map) error {
	return c.JSON(status, echo.Map{"status": "success", "data": data})
}

// respondCollection includes the results count, which clients use instead of
// re-counting the array.
func respondCollection(c echo.Context, status, results int, data echo.Map) error {
	return c.JSON(status, echo.Map{"status": "success", "results": results, "data": data})
}

func respondMessage(c echo.Context, status int, message string) error {
	return c.JSON(status, echo.Map{"status": "success", "message": message})
}
