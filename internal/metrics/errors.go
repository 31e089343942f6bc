package metrics

import "strconv"

// Error series.
const (
	ErrorsTotalName      = "errors_total"
	PanicsTotalName      = "panics_total"
	ErrorsByEndpointName = "errors_by_endpoint"
)

// RecordError counts an error response by code and HTTP status.
func RecordError(code string, status int) {
	count(ErrorsTotalName, map[string]string{"error_code": code, "http_status": strconv.Itoa(status)})
}

// RecordPanic counts a recovered handler panic.
func RecordPanic() {
	count(PanicsTotalName, nil)
}

// RecordErrorByEndpoint counts an error by route pattern. Pass the chi
// pattern, never the raw path, so search ids do not become labels.
func RecordErrorByEndpoint(endpoint, code string) {
	count(ErrorsByEndpointName, map[string]string{"endpoint": endpoint, "error_code": code})
}
