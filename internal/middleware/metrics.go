package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"cryptosniper/internal/monitoring"
)

// RequestMetrics records duration and count per route template. Errors are
// committed to the response here so the status label is final.
func RequestMetrics(m *monitoring.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			if err := next(c); err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.ObserveRequest(route, c.Request().Method, c.Response().Status, time.Since(start))
			return nil
		}
	}
}
