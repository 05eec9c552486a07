package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
)

// RequestRecorder is satisfied by *metrics.Collector.
type RequestRecorder interface {
	RecordRequest(method, route string, status int, d time.Duration)
}

// Metrics records every request against its route pattern.  Unmatched
// paths share one label to keep cardinality bounded.
func Metrics(rec RequestRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			rec.RecordRequest(c.Request().Method, route, c.Response().Status, time.Since(start))
			return nil
		}
	}
}
