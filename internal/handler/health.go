package handler

import (
	"database/sql"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health reports liveness plus database reachability.
func Health(db *sql.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		dbStatus := "up"
		ctx, cancel := reqCtx(c)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			dbStatus = "down"
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "db": dbStatus})
	}
}
