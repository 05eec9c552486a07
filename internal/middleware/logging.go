package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestLogger writes one structured line per request.  The level
// follows the status: 5xx ERROR, 4xx WARN, otherwise INFO.
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// let echo's error handler settle the status first
				c.Error(err)
			}
			req := c.Request()
			status := c.Response().Status
			p := PrincipalFrom(c)

			attrs := []any{
				slog.String("method", req.Method),
				slog.String("route", routeOf(c)),
				slog.String("path", req.URL.Path),
				slog.Int("status", status),
				slog.Float64("duration_ms", float64(time.Since(start).Nanoseconds())/float64(time.Millisecond)),
				slog.String("credential", string(p.Via)),
			}
			if p.IsAuthenticated() {
				attrs = append(attrs, slog.Uint64("user_id", p.UserID))
			}

			level := slog.LevelInfo
			switch {
			case status >= http.StatusInternalServerError:
				level = slog.LevelError
			case status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}
			logger.Log(req.Context(), level, "http_request", attrs...)
			return nil
		}
	}
}

// routeOf returns the matched route pattern, or the raw path for
// unmatched requests.
func routeOf(c echo.Context) string {
	if r := c.Path(); r != "" {
		return r
	}
	return c.Request().URL.Path
}
