package observability

import (
	"fmt"
	"net"
	"strconv"

	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/fulmenhq/gofulmen/telemetry/exporters"
)

// fallbackMetricsPort is reported when an ephemeral exporter port cannot be read back.
const fallbackMetricsPort = 9090

var (
	// TelemetrySystem receives the search, credit, report and HTTP metrics.
	TelemetrySystem *telemetry.System

	// PrometheusExporter serves TelemetrySystem in Prometheus text format.
	PrometheusExporter *exporters.PrometheusExporter

	metricsPort int
)

// InitMetrics starts a Prometheus exporter on port (0 picks a free port) and
// installs TelemetrySystem on top of it. Metric names are prefixed with the
// namespace when given, otherwise with serviceName.
func InitMetrics(serviceName string, port int, namespace ...string) error {
	if port < 0 {
		port = 0
	}
	prefix := serviceName
	if len(namespace) > 0 && namespace[0] != "" {
		prefix = namespace[0]
	}

	exporter := exporters.NewPrometheusExporter(prefix, fmt.Sprintf(":%d", port))
	if err := exporter.Start(); err != nil {
		return err
	}
	PrometheusExporter = exporter

	metricsPort = port
	if bound, err := resolvePort(exporter.GetAddr()); err == nil {
		metricsPort = bound
	} else if port == 0 {
		metricsPort = fallbackMetricsPort
	}

	// errors_total, panics_total and errors_by_endpoint register on first use.
	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: exporter})
	if err != nil {
		return err
	}
	TelemetrySystem = sys
	return nil
}

// StopMetrics stops the exporter and clears the telemetry globals.
func StopMetrics() error {
	var err error
	if PrometheusExporter != nil {
		err = PrometheusExporter.Stop()
	}
	PrometheusExporter = nil
	TelemetrySystem = nil
	metricsPort = 0
	return err
}

// GetMetricsPort returns the port the exporter is bound to, or 0 before InitMetrics.
func GetMetricsPort() int {
	return metricsPort
}

func resolvePort(addr string) (int, error) {
	_, raw, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(raw)
}
