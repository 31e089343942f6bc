// Package config provides centralized configuration management for Headhunter.
// Defaults are registered on a viper instance, the user config file and
// HEADHUNTER_* environment variables are layered on top, and the merged
// settings are decoded into a typed Config with mapstructure.
package config

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/appidentity"
	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/headhuntertrace/headhunter/internal/appid"
	"github.com/headhuntertrace/headhunter/internal/core"
)

var (
	appConfig   *Config
	configMu    sync.RWMutex
	appIdentity *appidentity.Identity
)

// Load merges defaults, the config file already read into v (if any),
// environment overrides and runtime overrides, then decodes the result.
//
// This function is safe to call multiple times (e.g., for config reload).
func Load(ctx context.Context, v *viper.Viper, runtimeOverrides ...map[string]any) (*Config, error) {
	if v == nil {
		v = viper.GetViper()
	}

	if appIdentity == nil {
		identity, err := appid.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load app identity: %w", err)
		}
		appIdentity = identity
	}

	SetDefaults(v)

	envOverrides, err := gfconfig.LoadEnvOverrides(getEnvSpecs())
	if err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}
	if envOverrides == nil {
		envOverrides = map[string]any{}
	}
	applyAILinkDynamicEnvOverrides(envPrefix(), envOverrides)

	layers := append([]map[string]any{envOverrides}, runtimeOverrides...)
	for _, layer := range layers {
		if len(layer) == 0 {
			continue
		}
		if err := v.MergeConfigMap(layer); err != nil {
			return nil, fmt.Errorf("failed to merge config overrides: %w", err)
		}
	}

	cfg, err := Decode(v.AllSettings())
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}
	if strings.TrimSpace(cfg.Report.Dir) == "" {
		cfg.Report.Dir = DefaultReportDir()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

// Decode converts a raw settings map into a typed Config.
func Decode(settings map[string]any) (*Config, error) {
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// Validate rejects settings that cannot produce a working process.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}

	switch strings.ToLower(strings.TrimSpace(c.Store.Driver)) {
	case "", "libsql":
	case "postgres", "pgx":
		if strings.TrimSpace(c.Store.URL) == "" {
			return fmt.Errorf("store.url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported store driver: %s", c.Store.Driver)
	}

	switch strings.ToLower(strings.TrimSpace(c.Analysis.Mode)) {
	case "", "local":
	case "remote":
		if strings.TrimSpace(c.Analysis.URL) == "" {
			return fmt.Errorf("analysis.url is required when analysis.mode is remote")
		}
	default:
		return fmt.Errorf("unsupported analysis mode: %s", c.Analysis.Mode)
	}

	if c.Credits.Free < 0 || c.Credits.PremiumBasic < 0 || c.Credits.PremiumPro < 0 || c.Credits.Enterprise < 0 {
		return fmt.Errorf("credit allotments must not be negative")
	}
	return c.AILink.Validate()
}

// Allotment returns the starting credit balance for a plan.
func (c CreditsConfig) Allotment(plan core.Plan) int {
	switch plan {
	case core.PlanPremiumBasic:
		return c.PremiumBasic
	case core.PlanPremiumPro:
		return c.PremiumPro
	case core.PlanEnterprise:
		return c.Enterprise
	default:
		return c.Free
	}
}

// defaults are registered under every other layer. store.path and
// report.dir depend on the XDG data dir and are filled in by Load.
var defaults = map[string]any{
	"server.host":             "localhost",
	"server.port":             8080,
	"server.read_timeout":     "30s",
	"server.write_timeout":    "30s",
	"server.idle_timeout":     "120s",
	"server.shutdown_timeout": "10s",
	"server.admin_token":      "",

	"logging.level":   "info",
	"logging.profile": "structured",

	"store.driver":     "libsql",
	"store.url":        "",
	"store.auth_token": "",

	"ailink.default_timeout": "60s",
	"ailink.prompts_dir":     "",

	"analysis.mode":    "local",
	"analysis.url":     "",
	"analysis.timeout": (2 * time.Minute).String(),

	"credits.free":          3,
	"credits.premium_basic": 20,
	"credits.premium_pro":   100,
	"credits.enterprise":    1000000,

	"report.dir":      "",
	"report.compress": true,

	"events.redis_url": "",
	"events.channel":   "EVENT_SEARCH_STATUS",
	"events.buffer":    16,

	"metrics.enabled":     true,
	"metrics.port":        9090,
	"health.enabled":      true,
	"debug.enabled":       false,
	"debug.pprof_enabled": false,
}

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetDefault("store.path", DefaultStorePath())
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}
