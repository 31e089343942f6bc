package ailink

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Config is the ailink subtree of the application config: the provider
// instances the analysis function may call and how roles route to them.
type Config struct {
	DefaultProvider string        `mapstructure:"default_provider"`
	DefaultTimeout  time.Duration `mapstructure:"default_timeout"`

	// PromptsDir replaces the embedded prompt set when set.
	PromptsDir string `mapstructure:"prompts_dir"`

	// Providers is keyed by an operator-chosen id such as "gemini" or "lovable".
	Providers map[string]ProviderInstanceConfig `mapstructure:"providers"`

	// Routing maps a role (prompt slug) to a provider id.
	Routing map[string]string `mapstructure:"routing"`
}

// ProviderInstanceConfig is one configured provider instance.
type ProviderInstanceConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// AIProvider selects the driver: openai, gateway and xai speak the
	// OpenAI chat completions API; gemini (or google) uses the genai SDK.
	AIProvider string `mapstructure:"ai_provider"`

	// SelectionPolicy is "priority" (default) or "round_robin".
	SelectionPolicy string `mapstructure:"selection_policy"`

	// DefaultCredential pins the credential with this label.
	DefaultCredential string `mapstructure:"default_credential"`

	BaseURL string            `mapstructure:"base_url"`
	Models  map[string]string `mapstructure:"models"`
	Roles   []string          `mapstructure:"roles"`

	Credentials []CredentialConfig `mapstructure:"credentials"`
}

// CredentialConfig is one API key of a provider instance. Higher Priority
// wins.
type CredentialConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Label    string `mapstructure:"label"`
	APIKey   string `mapstructure:"api_key"`
	Priority int    `mapstructure:"priority"`
}

var knownProviders = map[string]bool{"openai": true, "gateway": true, "xai": true, "gemini": true, "google": true}

// Validate checks routing targets and the driver and policy of every enabled
// provider. Missing API keys are not an error here; doctor reports them.
func (c Config) Validate() error {
	ids := make([]string, 0, len(c.Providers))
	for id := range c.Providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		p := c.Providers[id]
		if !p.Enabled {
			continue
		}
		if kind := strings.ToLower(strings.TrimSpace(p.AIProvider)); !knownProviders[kind] {
			return fmt.Errorf("ailink.providers.%s.ai_provider %q is not supported", id, p.AIProvider)
		}
		switch strings.ToLower(strings.TrimSpace(p.SelectionPolicy)) {
		case "", "priority", "round_robin":
		default:
			return fmt.Errorf("ailink.providers.%s.selection_policy %q is not supported", id, p.SelectionPolicy)
		}
	}

	for role, id := range c.Routing {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := c.Providers[id]; !ok {
			return fmt.Errorf("ailink.routing.%s names unknown provider %q", role, id)
		}
	}
	return nil
}
