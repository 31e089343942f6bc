// Package metrics names the service's telemetry series and records them on
// the global telemetry system. Every recorder is a no-op until serve installs
// one.
package metrics

import (
	"time"

	"github.com/headhuntertrace/headhunter/internal/observability"
)

// Process and health series.
const (
	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"
	ServerStartTime     = "app_server_start_time_seconds"
)

func count(name string, labels map[string]string) {
	if sys := observability.TelemetrySystem; sys != nil {
		_ = sys.Counter(name, 1, labels)
	}
}

func observe(name string, d time.Duration, labels map[string]string) {
	if sys := observability.TelemetrySystem; sys != nil {
		_ = sys.Histogram(name, d, labels)
	}
}

func outcome(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}

// RecordHealthCheck records one checker run of a health probe.
func RecordHealthCheck(check string, healthy bool, d time.Duration) {
	count(HealthCheckTotal, map[string]string{"check": check, "status": outcome(healthy, "healthy", "unhealthy")})
	observe(HealthCheckDuration, d, map[string]string{"check": check})
}

// SetServerStartTime publishes the serve start time in Unix seconds.
func SetServerStartTime(unix int64) {
	if sys := observability.TelemetrySystem; sys != nil {
		_ = sys.Gauge(ServerStartTime, float64(unix), nil)
	}
}
