package config

import (
	"os"
	"strconv"
	"strings"

	gfconfig "github.com/fulmenhq/gofulmen/config"
)

// EnvVarSpec maps one {PREFIX}{NAME} variable to a config path.
type EnvVarSpec = gfconfig.EnvVarSpec

const (
	EnvString = gfconfig.EnvString
	EnvInt    = gfconfig.EnvInt
	EnvBool   = gfconfig.EnvBool
)

// envBindings lists the fixed variables by name suffix. Durations travel as
// strings and are decoded by mapstructure.
var envBindings = []EnvVarSpec{
	{Name: "HOST", Path: path("server.host"), Type: EnvString},
	{Name: "PORT", Path: path("server.port"), Type: EnvInt},
	{Name: "READ_TIMEOUT", Path: path("server.read_timeout"), Type: EnvString},
	{Name: "WRITE_TIMEOUT", Path: path("server.write_timeout"), Type: EnvString},
	{Name: "IDLE_TIMEOUT", Path: path("server.idle_timeout"), Type: EnvString},
	{Name: "SHUTDOWN_TIMEOUT", Path: path("server.shutdown_timeout"), Type: EnvString},
	{Name: "ADMIN_TOKEN", Path: path("server.admin_token"), Type: EnvString},

	{Name: "LOG_LEVEL", Path: path("logging.level"), Type: EnvString},
	{Name: "LOG_PROFILE", Path: path("logging.profile"), Type: EnvString},

	{Name: "DB_DRIVER", Path: path("store.driver"), Type: EnvString},
	{Name: "DB_PATH", Path: path("store.path"), Type: EnvString},
	{Name: "DB_URL", Path: path("store.url"), Type: EnvString},
	{Name: "DB_AUTH_TOKEN", Path: path("store.auth_token"), Type: EnvString},

	{Name: "AILINK_DEFAULT_PROVIDER", Path: path("ailink.default_provider"), Type: EnvString},
	{Name: "AILINK_DEFAULT_TIMEOUT", Path: path("ailink.default_timeout"), Type: EnvString},
	{Name: "AILINK_PROMPTS_DIR", Path: path("ailink.prompts_dir"), Type: EnvString},

	{Name: "ANALYSIS_MODE", Path: path("analysis.mode"), Type: EnvString},
	{Name: "ANALYSIS_URL", Path: path("analysis.url"), Type: EnvString},
	{Name: "ANALYSIS_API_KEY", Path: path("analysis.api_key"), Type: EnvString},
	{Name: "ANALYSIS_TIMEOUT", Path: path("analysis.timeout"), Type: EnvString},

	{Name: "CREDITS_FREE", Path: path("credits.free"), Type: EnvInt},
	{Name: "CREDITS_PREMIUM_BASIC", Path: path("credits.premium_basic"), Type: EnvInt},
	{Name: "CREDITS_PREMIUM_PRO", Path: path("credits.premium_pro"), Type: EnvInt},
	{Name: "CREDITS_ENTERPRISE", Path: path("credits.enterprise"), Type: EnvInt},

	{Name: "REPORT_DIR", Path: path("report.dir"), Type: EnvString},
	{Name: "REPORT_COMPRESS", Path: path("report.compress"), Type: EnvBool},

	{Name: "EVENTS_REDIS_URL", Path: path("events.redis_url"), Type: EnvString},
	{Name: "EVENTS_CHANNEL", Path: path("events.channel"), Type: EnvString},

	{Name: "METRICS_ENABLED", Path: path("metrics.enabled"), Type: EnvBool},
	{Name: "METRICS_PORT", Path: path("metrics.port"), Type: EnvInt},
	{Name: "HEALTH_ENABLED", Path: path("health.enabled"), Type: EnvBool},
	{Name: "DEBUG_ENABLED", Path: path("debug.enabled"), Type: EnvBool},
	{Name: "DEBUG_PPROF_ENABLED", Path: path("debug.pprof_enabled"), Type: EnvBool},
}

func envPrefix() string {
	prefix := "HEADHUNTER_"
	if appIdentity != nil && strings.TrimSpace(appIdentity.EnvPrefix) != "" {
		prefix = appIdentity.EnvPrefix
	}
	if !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}
	return prefix
}

func getEnvSpecs() []EnvVarSpec {
	prefix := envPrefix()
	specs := make([]EnvVarSpec, 0, len(envBindings))
	for _, spec := range envBindings {
		spec.Name = prefix + spec.Name
		specs = append(specs, spec)
	}
	return specs
}

func path(dotted string) []string {
	return strings.Split(dotted, ".")
}

// providerFields are the scalar provider settings settable from the
// environment, keyed by their variable suffix.
var providerFields = map[string]string{
	"ENABLED":            "enabled",
	"AI_PROVIDER":        "ai_provider",
	"BASE_URL":           "base_url",
	"ROLES":              "roles",
	"SELECTION_POLICY":   "selection_policy",
	"DEFAULT_CREDENTIAL": "default_credential",
}

// applyAILinkDynamicEnvOverrides folds provider and routing variables into
// overrides. Provider ids and roles come from the variable name:
//
//	HEADHUNTER_AILINK_PROVIDERS_LOVABLE_GATEWAY_MODELS_DEFAULT=google/gemini-2.5-flash
//	HEADHUNTER_AILINK_PROVIDERS_GEMINI_CREDENTIALS_0_API_KEY=...
//	HEADHUNTER_AILINK_ROUTING_OSINT_SEARCH=gemini
func applyAILinkDynamicEnvOverrides(prefix string, overrides map[string]any) {
	providerPrefix := prefix + "AILINK_PROVIDERS_"
	routingPrefix := prefix + "AILINK_ROUTING_"

	for _, item := range os.Environ() {
		key, value, ok := strings.Cut(item, "=")
		value = strings.TrimSpace(value)
		if !ok || value == "" {
			continue
		}
		switch {
		case strings.HasPrefix(key, providerPrefix):
			setProviderOverride(overrides, strings.TrimPrefix(key, providerPrefix), value)
		case strings.HasPrefix(key, routingPrefix):
			if role := toSlug(strings.TrimPrefix(key, routingPrefix)); role != "" {
				ensureMap(ensureMap(overrides, "ailink"), "routing")[role] = value
			}
		}
	}
}

// setProviderOverride splits raw into a provider id and a field at the first
// part that starts a known field.
func setProviderOverride(overrides map[string]any, raw, value string) {
	parts := strings.Split(raw, "_")
	for i := 1; i < len(parts); i++ {
		id := toSlug(strings.Join(parts[:i], "_"))
		rest := parts[i:]
		field := strings.Join(rest, "_")

		provider := func() map[string]any {
			return ensureMap(ensureMap(ensureMap(overrides, "ailink"), "providers"), id)
		}

		if name, ok := providerFields[field]; ok {
			switch name {
			case "enabled":
				provider()[name] = strings.EqualFold(value, "true")
			case "ai_provider":
				provider()[name] = strings.ToLower(value)
			default:
				provider()[name] = value
			}
			return
		}
		if rest[0] == "MODELS" && len(rest) > 1 {
			ensureMap(provider(), "models")[strings.ToLower(strings.Join(rest[1:], "_"))] = value
			return
		}
		if rest[0] == "CREDENTIALS" && len(rest) > 2 {
			idx, err := strconv.Atoi(rest[1])
			if err != nil || idx < 0 {
				return
			}
			setCredentialField(provider(), idx, strings.ToLower(strings.Join(rest[2:], "_")), value)
			return
		}
	}
}

func setCredentialField(provider map[string]any, idx int, field, value string) {
	creds, _ := provider["credentials"].([]any)
	for len(creds) <= idx {
		creds = append(creds, map[string]any{})
	}
	provider["credentials"] = creds

	cred, ok := creds[idx].(map[string]any)
	if !ok {
		cred = map[string]any{}
		creds[idx] = cred
	}

	switch field {
	case "priority":
		if n, err := strconv.Atoi(value); err == nil {
			cred[field] = n
			return
		}
		cred[field] = value
	case "enabled":
		cred[field] = strings.EqualFold(value, "true")
	default:
		cred[field] = value
	}
}

func ensureMap(parent map[string]any, key string) map[string]any {
	if existing, ok := parent[key].(map[string]any); ok {
		return existing
	}
	next := map[string]any{}
	parent[key] = next
	return next
}

// toSlug turns OSINT_SEARCH into osint-search.
func toSlug(raw string) string {
	var parts []string
	for _, part := range strings.Split(raw, "_") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, "-")
}
