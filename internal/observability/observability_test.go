package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]string{
		"trace":   "TRACE",
		"DEBUG":   "DEBUG",
		" info ":  "INFO",
		"warning": "WARN",
		"warn":    "WARN",
		"error":   "ERROR",
		"":        "INFO",
		"verbose": "INFO",
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLogLevel(in), in)
	}
}

func TestResolvePort(t *testing.T) {
	port, err := resolvePort("[::]:9464")
	require.NoError(t, err)
	assert.Equal(t, 9464, port)

	_, err = resolvePort("no-port")
	require.Error(t, err)
}

func TestInitLoggers(t *testing.T) {
	cli, server := CLILogger, ServerLogger
	t.Cleanup(func() { CLILogger, ServerLogger = cli, server })

	InitCLILogger("headhunter", true)
	require.NotNil(t, CLILogger)
	CLILogger.Debug("search submitted", zap.String("query", "Jane Doe"))

	InitServerLogger("headhunter", "debug", "headhunter")
	require.NotNil(t, ServerLogger)
	ServerLogger.Info("search completed", zap.String("search_id", "s1"), zap.Int("results", 2))
}

func TestServerLoggerConfigCarriesNamespaceAndLevel(t *testing.T) {
	cfg := serverLoggerConfig("headhunter", "warning", "trace")
	assert.Equal(t, "WARN", cfg.DefaultLevel)
	assert.Equal(t, "headhunter", cfg.Service)
	assert.Equal(t, "trace", cfg.StaticFields["namespace"])
	require.Len(t, cfg.Sinks, 1)
	assert.Equal(t, "stderr", cfg.Sinks[0].Console.Stream)

	bare := serverLoggerConfig("headhunter", "")
	assert.Empty(t, bare.StaticFields)
	assert.Equal(t, "INFO", bare.DefaultLevel)
}

func TestStopMetricsClearsGlobals(t *testing.T) {
	metricsPort = 9464
	require.NoError(t, StopMetrics())
	assert.Nil(t, PrometheusExporter)
	assert.Nil(t, TelemetrySystem)
	assert.Zero(t, GetMetricsPort())
}
