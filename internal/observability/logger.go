package observability

import (
	"fmt"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
)

var (
	// CLILogger serves the search, history, report and user commands (SIMPLE profile).
	CLILogger *logging.Logger

	// ServerLogger serves the HTTP API and background search runs (STRUCTURED profile).
	ServerLogger *logging.Logger
)

var logLevels = map[string]string{
	"trace":   "TRACE",
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
}

// InitCLILogger installs CLILogger. verbose lowers the level to DEBUG so the
// orchestrator's step logs become visible.
func InitCLILogger(serviceName string, verbose bool) {
	logger, err := logging.NewCLI(serviceName)
	if err != nil {
		fatal(foundry.ExitConfigInvalid, "Failed to initialize CLI logger", err)
	}
	if verbose {
		logger.SetLevel(logging.DEBUG)
	}
	CLILogger = logger
}

// InitServerLogger installs ServerLogger with JSON output on stderr. The
// optional namespace is attached to every entry.
func InitServerLogger(serviceName string, logLevel string, namespace ...string) {
	logger, err := logging.New(serverLoggerConfig(serviceName, logLevel, namespace...))
	if err != nil {
		fatal(foundry.ExitConfigInvalid, "Failed to initialize server logger", err)
	}
	ServerLogger = logger
}

func serverLoggerConfig(serviceName, logLevel string, namespace ...string) *logging.LoggerConfig {
	static := map[string]any{}
	if len(namespace) > 0 && namespace[0] != "" {
		static["namespace"] = namespace[0]
	}

	return &logging.LoggerConfig{
		Profile:      logging.ProfileStructured,
		DefaultLevel: parseLogLevel(logLevel),
		Service:      serviceName,
		Environment:  "production",
		StaticFields: static,
		Middleware: []logging.MiddlewareConfig{
			{Name: "correlation", Enabled: true, Order: 100, Config: map[string]any{}},
		},
		Sinks: []logging.SinkConfig{
			{
				Type:    "console",
				Format:  "json",
				Console: &logging.ConsoleSinkConfig{Stream: "stderr", Colorize: false},
			},
		},
		EnableCaller:     true,
		EnableStacktrace: true,
	}
}

// parseLogLevel maps a config level to a gofulmen severity. Unknown values map to INFO.
func parseLogLevel(level string) string {
	if mapped, ok := logLevels[strings.ToLower(strings.TrimSpace(level))]; ok {
		return mapped
	}
	return "INFO"
}

// fatal reports a logger setup failure on stderr and exits, since no logger
// exists yet to carry the message.
func fatal(code foundry.ExitCode, msg string, err error) {
	line := "FATAL: " + msg
	if err != nil {
		line = fmt.Sprintf("%s: %v", line, err)
	}
	fmt.Fprintln(os.Stderr, line)

	if info, ok := foundry.GetExitCodeInfo(code); ok {
		fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
		os.Exit(info.Code)
	}
	os.Exit(int(code))
}
