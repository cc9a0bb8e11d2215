package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/reckless-court/internal/observability/metrics"
)

// NewMetrics records request counts and latency per route pattern
func NewMetrics(m *metrics.HTTPMetrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			status := c.Response().Status
			m.RecordHTTPRequest(c.Request().Method, path, status, time.Since(start).Seconds())
			if status >= 400 {
				m.RecordHTTPRequestError(c.Request().Method, path, statusClass(status))
			}
			return nil
		}
	}
}

func statusClass(status int) string {
	if status >= 500 {
		return "server"
	}
	return "client"
}
