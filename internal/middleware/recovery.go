package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
)

// Recover turns a panic in a handler into a logged 500.
func Recover() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				req := c.Request()
				slog.ErrorContext(req.Context(), "panic recovered",
					slog.String("panic", fmt.Sprint(rec)),
					slog.String("method", req.Method),
					slog.String("path", req.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)
				if c.Response().Committed {
					err = nil
					return
				}
				err = c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
			}()
			return next(c)
		}
	}
}
