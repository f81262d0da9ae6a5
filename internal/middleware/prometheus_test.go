package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"remotion_studio/internal/metrics"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func serve(e *echo.Echo, method, target string) int {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec.Code
}

func TestPrometheusMetrics(t *testing.T) {
	e := echo.New()
	e.Use(PrometheusMetrics("/health"))
	e.GET("/projects/:id", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})
	e.POST("/projects", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusConflict, "busy")
	})
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	t.Run("labels by route template", func(t *testing.T) {
		counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/projects/:id", "204")
		before := testutil.ToFloat64(counter)

		assert.Equal(t, http.StatusNoContent, serve(e, http.MethodGet, "/projects/p1"))
		assert.Equal(t, http.StatusNoContent, serve(e, http.MethodGet, "/projects/p2"))

		assert.Equal(t, before+2, testutil.ToFloat64(counter))
	})

	t.Run("handler error status", func(t *testing.T) {
		counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodPost, "/projects", "409")
		before := testutil.ToFloat64(counter)

		assert.Equal(t, http.StatusConflict, serve(e, http.MethodPost, "/projects"))

		assert.Equal(t, before+1, testutil.ToFloat64(counter))
	})

	t.Run("skipped route", func(t *testing.T) {
		counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/health", "200")
		before := testutil.ToFloat64(counter)

		assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/health"))

		assert.Equal(t, before, testutil.ToFloat64(counter))
	})

	t.Run("in flight settles", func(t *testing.T) {
		serve(e, http.MethodGet, "/projects/p3")
		assert.Equal(t, float64(0), testutil.ToFloat64(metrics.HTTPInFlight))
	})
}
