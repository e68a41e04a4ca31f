package apperr

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
)

// envelope is the uniform error response body: "fail" for 4xx, "error" for
// 5xx, with a message the client may display.
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"` // dev mode only
}

// ErrorHandler returns echo's centralized error handler. Operational errors
// render their own status and message. echo's routing errors (404/405) pass
// through with their text. Everything else is logged and collapsed into a
// generic 500 unless the app runs in dev mode, where the underlying error
// text is included to ease debugging.
func ErrorHandler(env string) echo.HTTPErrorHandler {
	dev := env == "dev" || env == "development"
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		message := "Something went wrong."
		detail := ""

		if e, ok := As(err); ok {
			status = e.Status()
			message = e.Message
			if dev && e.Err != nil {
				detail = e.Err.Error()
			}
			if status >= 500 {
				log.Printf("server error: %v", err)
			}
		} else if he, ok := err.(*echo.HTTPError); ok {
			status = he.Code
			if s, ok := he.Message.(string); ok {
				message = s
			} else {
				message = http.StatusText(status)
			}
		} else {
			log.Printf("unexpected error: %v", err)
			if dev {
				detail = err.Error()
			}
		}

		body := envelope{Status: statusWord(status), Message: message, Detail: detail}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}

func statusWord(status int) string {
	if status >= 400 && status < 500 {
		return "fail"
	}
	return "error"
}
