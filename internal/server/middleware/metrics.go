package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/headhuntertrace/headhunter/internal/observability"
)

// responseWriter records the status and body size of a response.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Flush forwards to the wrapped writer so event streams are not buffered.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// fixedEndpoints label requests that never reached a chi route.
var fixedEndpoints = map[string]string{
	"/health":                 "/health/*",
	"/health/live":            "/health/*",
	"/health/ready":           "/health/*",
	"/health/startup":         "/health/*",
	"/version":                "/version",
	"/metrics":                "/metrics",
	"/functions/osint-search": "/functions/osint-search",
	"/":                       "/",
}

// EndpointPattern returns the chi route pattern for r, or a fixed bucket for
// unrouted paths, so metric labels stay low-cardinality. Search ids never
// appear in labels.
func EndpointPattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	if endpoint, ok := fixedEndpoints[r.URL.Path]; ok {
		return endpoint
	}
	return "/unknown"
}

// RequestMetrics emits request count, latency, sizes and error counts, then
// logs the request with its correlation id.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sys := observability.TelemetrySystem
		if sys == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start)

		endpoint := EndpointPattern(r)
		status := strconv.Itoa(wrapped.statusCode)
		route := map[string]string{"method": r.Method, "endpoint": endpoint}
		labels := map[string]string{"method": r.Method, "endpoint": endpoint, "status": status}

		requestSize := r.ContentLength
		if requestSize < 0 {
			requestSize = 0
		}

		_ = sys.Counter("http_requests_total", 1, labels)
		_ = sys.Histogram("http_request_duration_ms", duration, labels)
		_ = sys.Gauge("http_request_size_bytes", float64(requestSize), route)
		_ = sys.Gauge("http_response_size_bytes", float64(wrapped.bytesWritten), route)

		if wrapped.statusCode >= 400 {
			errorType := "client_error"
			if wrapped.statusCode >= 500 {
				errorType = "server_error"
			}
			_ = sys.Counter("http_errors_total", 1, map[string]string{
				"method":     r.Method,
				"endpoint":   endpoint,
				"status":     status,
				"error_type": errorType,
			})
		}

		if observability.ServerLogger != nil {
			observability.ServerLogger.Info("HTTP request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("endpoint", endpoint),
				zap.Int("status", wrapped.statusCode),
				zap.Duration("duration", duration),
				zap.Int64("request_size", requestSize),
				zap.Int64("response_size", wrapped.bytesWritten),
				zap.String("request_id", GetRequestID(r.Context())))
		}
	})
}
