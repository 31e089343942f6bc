package config

import (
	"net"
	"strconv"
	"time"

	"github.com/headhuntertrace/headhunter/internal/ailink"
)

// Config represents the complete application configuration.
//
// Values are layered: built-in defaults, then the user config file
// (~/.config/headhunter/config.yaml), then HEADHUNTER_* environment
// variables, then command-line flags and runtime overrides.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	AILink   ailink.Config  `mapstructure:"ailink"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Credits  CreditsConfig  `mapstructure:"credits"`
	Report   ReportConfig   `mapstructure:"report"`
	Events   EventsConfig   `mapstructure:"events"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Health   HealthConfig   `mapstructure:"health"`
	Debug    DebugConfig    `mapstructure:"debug"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// AdminToken gates credit grants over HTTP. Empty disables the endpoint.
	AdminToken string `mapstructure:"admin_token"`
}

// Addr is the listen address host:port.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// StoreConfig contains database configuration.
//
// Driver "libsql" (default) accepts Path for an embedded file or URL for Turso.
// Driver "postgres" requires URL.
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// AnalysisConfig selects how the search orchestrator reaches the analysis function.
type AnalysisConfig struct {
	// Mode is "local" (in-process ailink service) or "remote" (HTTP function endpoint).
	Mode    string        `mapstructure:"mode"`
	URL     string        `mapstructure:"url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// CreditsConfig holds the per-plan starting allotments.
type CreditsConfig struct {
	Free         int `mapstructure:"free"`
	PremiumBasic int `mapstructure:"premium_basic"`
	PremiumPro   int `mapstructure:"premium_pro"`
	Enterprise   int `mapstructure:"enterprise"`
}

// ReportConfig controls PDF output.
type ReportConfig struct {
	Dir      string `mapstructure:"dir"`
	Compress bool   `mapstructure:"compress"`
}

// EventsConfig controls status event fan-out.
type EventsConfig struct {
	// RedisURL enables publishing search status events to Redis when set.
	RedisURL string `mapstructure:"redis_url"`
	Channel  string `mapstructure:"channel"`
	Buffer   int    `mapstructure:"buffer"`
}

// LoggingConfig sets the server log level (trace, debug, info, warn,
// error) and the gofulmen logging profile (SIMPLE or STRUCTURED).
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Profile string `mapstructure:"profile"`
}

// MetricsConfig controls the Prometheus exporter. Port is the exporter's own
// listener; /metrics on the API port proxies to it.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HealthConfig toggles the /health probe routes.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DebugConfig holds development switches.
type DebugConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// PprofEnabled mounts /debug/pprof on the API port. Keep it off in
	// production.
	PprofEnabled bool `mapstructure:"pprof_enabled"`
}
