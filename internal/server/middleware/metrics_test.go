package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fulmenhq/gofulmen/telemetry"
	telemetrytesting "github.com/fulmenhq/gofulmen/telemetry/testing"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/headhuntertrace/headhunter/internal/observability"
)

func setupTelemetry(t *testing.T) *telemetrytesting.FakeCollector {
	t.Helper()

	collector := telemetrytesting.NewFakeCollector()
	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: collector})
	require.NoError(t, err)

	original := observability.TelemetrySystem
	observability.TelemetrySystem = sys
	t.Cleanup(func() { observability.TelemetrySystem = original })
	return collector
}

func TestRequestMetricsEmission(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		metrics []string
		absent  []string
	}{
		{
			name:    "ok",
			status:  http.StatusOK,
			body:    `{"status":"completed"}`,
			metrics: []string{"http_requests_total", "http_request_duration_ms", "http_request_size_bytes", "http_response_size_bytes"},
			absent:  []string{"http_errors_total"},
		},
		{
			name:    "payment required",
			status:  http.StatusPaymentRequired,
			metrics: []string{"http_requests_total", "http_errors_total"},
		},
		{
			name:    "bad gateway",
			status:  http.StatusBadGateway,
			metrics: []string{"http_requests_total", "http_errors_total"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			collector := setupTelemetry(t)
			handler := RequestMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/v1/searches", strings.NewReader(`{"query":"Jane Doe"}`))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.body, rec.Body.String())
			for _, name := range tc.metrics {
				assert.Greater(t, collector.CountMetricsByName(name), 0, "expected %s", name)
			}
			for _, name := range tc.absent {
				assert.Zero(t, collector.CountMetricsByName(name), "unexpected %s", name)
			}
		})
	}
}

func TestRequestMetricsWithTelemetryDisabled(t *testing.T) {
	original := observability.TelemetrySystem
	observability.TelemetrySystem = nil
	t.Cleanup(func() { observability.TelemetrySystem = original })

	handler := RequestMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/searches", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestEndpointPatternFallbacks(t *testing.T) {
	tests := map[string]string{
		"/health":                 "/health/*",
		"/health/startup":         "/health/*",
		"/version":                "/version",
		"/metrics":                "/metrics",
		"/functions/osint-search": "/functions/osint-search",
		"/api/v1/searches/abc":    "/unknown",
		"/":                       "/",
	}
	for path, want := range tests {
		assert.Equal(t, want, EndpointPattern(httptest.NewRequest(http.MethodGet, path, nil)), path)
	}
}

func TestEndpointPatternUsesRoutePattern(t *testing.T) {
	var got string
	r := chi.NewRouter()
	r.Get("/api/v1/searches/{id}", func(w http.ResponseWriter, req *http.Request) {
		got = EndpointPattern(req)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/searches/3f2a", nil))
	assert.Equal(t, "/api/v1/searches/{id}", got)
}

func TestRequestMetricsForwardsFlush(t *testing.T) {
	setupTelemetry(t)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		require.True(t, ok, "wrapped writer must support streaming")
		_, _ = w.Write([]byte("data: 1\n\n"))
		flusher.Flush()
	})

	rec := httptest.NewRecorder()
	RequestMetrics(handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/searches/s1/events", nil))

	assert.True(t, rec.Flushed)
	assert.Equal(t, "data: 1\n\n", rec.Body.String())
}

func TestRecoveryWritesInternalErrorEnvelope(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("renderer exploded")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/searches/s1/report", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	RequestID(Recovery(handler)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"code":"INTERNAL_ERROR"`)
	assert.Contains(t, body, `"request_id":"req-42"`)
	assert.NotContains(t, body, "renderer exploded")
}
