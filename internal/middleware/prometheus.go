package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"remotion_studio/internal/metrics"

	"github.com/labstack/echo/v4"
)

// unmatched labels requests no route claimed, so stray paths cannot grow the
// label set.
const unmatched = "unmatched"

// PrometheusMetrics records count, latency and in-flight requests for every
// route except the ones listed in skip.
func PrometheusMetrics(skip ...string) echo.MiddlewareFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := skipped[c.Path()]; ok {
				return next(c)
			}

			metrics.HTTPInFlight.Inc()
			defer metrics.HTTPInFlight.Dec()

			start := time.Now()
			err := next(c)
			duration := time.Since(start).Seconds()

			path := c.Path()
			if path == "" {
				path = unmatched
			}

			metrics.HTTPRequestsTotal.WithLabelValues(
				c.Request().Method,
				path,
				strconv.Itoa(statusOf(c, err)),
			).Inc()

			metrics.HTTPRequestDuration.WithLabelValues(
				c.Request().Method,
				path,
			).Observe(duration)

			return err
		}
	}
}

// statusOf reports the code the client will see. A handler error has not
// been written yet when the middleware unwinds.
func statusOf(c echo.Context, err error) int {
	if err == nil {
		return c.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	if c.Response().Committed {
		return c.Response().Status
	}
	return http.StatusInternalServerError
}
