package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestHandlerExposesHealthScore(t *testing.T) {
	m := NewMetrics()
	m.ObserveHealth("database", 95)
	assert.Contains(t, scrape(t, m), `kirana_health_score{probe="database"} 95`)
	assert.Contains(t, scrape(t, m), "go_goroutines")
}

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	m := NewMetrics()
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, float64(1), testutil.ToFloat64(m.inFlight))
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/dashboard/users/{id}")
	req := httptest.NewRequest(http.MethodGet, "/dashboard/users/42", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusTeapot, rr.Code)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.requests.WithLabelValues("/dashboard/users/{id}", "418")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.inFlight))
	body := scrape(t, m)
	assert.Contains(t, body, `kirana_http_request_duration_seconds_bucket{route="/dashboard/users/{id}"`)
	assert.Contains(t, body, `kirana_http_response_size_bytes_sum{route="/dashboard/users/{id}"} 15`)
}

func TestMiddlewareDefaultsStatusAndRoute(t *testing.T) {
	m := NewMetrics()
	m.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requests.WithLabelValues("unmatched", "200")))
}

func TestNilMetricsAreInert(t *testing.T) {
	var m *Metrics
	m.AccessDenied("path")
	m.ObserveHealth("redis", 10)
	m.ContentCache(true)

	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	assert.NotNil(t, m.Middleware(next))

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestAccessDeniedAndCacheCounters(t *testing.T) {
	m := NewMetrics()
	m.AccessDenied("path")
	m.ContentCache(true)
	m.ContentCache(false)
	m.ContentCache(false)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.accessDenied.WithLabelValues("path")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.contentCache.WithLabelValues("hit")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.contentCache.WithLabelValues("miss")))
}
