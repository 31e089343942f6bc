package ailink

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/headhuntertrace/headhunter/internal/ailink/driver"
	"github.com/headhuntertrace/headhunter/internal/ailink/driver/gemini"
	"github.com/headhuntertrace/headhunter/internal/ailink/driver/openai"
	"github.com/headhuntertrace/headhunter/internal/ailink/prompt"
)

const defaultXAIBaseURL = "https://api.x.ai/v1"

// Registry routes a role (a prompt slug) to a provider instance, one of its
// credentials, a driver and a model. Drivers are built once per provider and
// credential and reused.
type Registry struct {
	cfg Config

	mu      sync.Mutex
	drivers map[string]driver.Driver
	cursors map[string]int
}

// ResolvedProvider is the outcome of routing one call.
type ResolvedProvider struct {
	ProviderID string
	Provider   ProviderInstanceConfig
	Credential CredentialConfig
	Driver     driver.Driver
	Model      string
	BaseURL    string

	// Source names the rule that picked the provider: routing, roles,
	// default_provider or only_enabled_provider.
	Source string
	// ModelSource names where the model came from: override,
	// provider.models.default or prompt.preferred_models.
	ModelSource string
}

const (
	sourceRouting      = "routing"
	sourceRoles        = "roles"
	sourceDefault      = "default_provider"
	sourceOnlyEnabled  = "only_enabled_provider"
	modelFromOverride  = "override"
	modelFromProvider  = "provider.models.default"
	modelFromPreferred = "prompt.preferred_models"
)

// NewRegistry returns a registry over cfg.
func NewRegistry(cfg Config) *Registry {
	return &Registry{
		cfg:     cfg,
		drivers: map[string]driver.Driver{},
		cursors: map[string]int{},
	}
}

// Config returns the configuration the registry was built from.
func (r *Registry) Config() Config {
	if r == nil {
		return Config{}
	}
	return r.cfg
}

// Resolve routes role to a provider. Explicit routing wins, then the first
// enabled provider (by id) listing the role, then the default provider, then
// the sole enabled provider.
func (r *Registry) Resolve(role string, promptDef *prompt.Prompt, modelOverride string) (*ResolvedProvider, error) {
	id, providerCfg, source, err := r.route(role)
	if err != nil {
		return nil, err
	}

	cred, credKey, err := selectCredential(providerCfg, func(group string, n int) int {
		return r.rrIndex(id+":"+group, n)
	})
	if err != nil {
		return nil, fmt.Errorf("provider %q: %w", id, err)
	}

	model, modelSource, err := pickModel(providerCfg, promptDef, modelOverride)
	if err != nil {
		return nil, fmt.Errorf("provider %q: %w", id, err)
	}

	drv, err := r.driverFor(id, providerCfg, cred, credKey)
	if err != nil {
		return nil, err
	}

	resolved := &ResolvedProvider{
		ProviderID: id,
		Provider:   providerCfg,
		Credential: cred,
		Driver:     drv,
		Model:      model,
		BaseURL:    strings.TrimSpace(providerCfg.BaseURL),

		Source:      source,
		ModelSource: modelSource,
	}
	if client, ok := drv.(*openai.Client); ok {
		resolved.BaseURL = strings.TrimSpace(client.BaseURL)
	}
	return resolved, nil
}

func (r *Registry) resolveProvider(role string) (string, ProviderInstanceConfig, error) {
	id, providerCfg, _, err := r.route(role)
	return id, providerCfg, err
}

func (r *Registry) route(role string) (string, ProviderInstanceConfig, string, error) {
	if r == nil {
		return "", ProviderInstanceConfig{}, "", fmt.Errorf("ailink registry not configured")
	}

	role = strings.TrimSpace(role)
	if role != "" {
		if id := strings.TrimSpace(r.cfg.Routing[role]); id != "" {
			return r.enabledProvider(id, sourceRouting, fmt.Sprintf("provider %q for role %q", id, role))
		}
		for _, id := range r.enabledIDs() {
			if hasRole(r.cfg.Providers[id].Roles, role) {
				return id, r.cfg.Providers[id], sourceRoles, nil
			}
		}
	}

	if id := strings.TrimSpace(r.cfg.DefaultProvider); id != "" {
		return r.enabledProvider(id, sourceDefault, fmt.Sprintf("default provider %q", id))
	}

	switch ids := r.enabledIDs(); len(ids) {
	case 0:
		return "", ProviderInstanceConfig{}, "", fmt.Errorf("no enabled providers configured")
	case 1:
		return ids[0], r.cfg.Providers[ids[0]], sourceOnlyEnabled, nil
	default:
		return "", ProviderInstanceConfig{}, "", fmt.Errorf("no provider routing configured for role %q (%d providers enabled)", role, len(ids))
	}
}

// enabledProvider looks up id and requires it to be enabled. what names the
// lookup in errors.
func (r *Registry) enabledProvider(id, source, what string) (string, ProviderInstanceConfig, string, error) {
	providerCfg, ok := r.cfg.Providers[id]
	if !ok {
		return "", ProviderInstanceConfig{}, "", fmt.Errorf("unknown %s", what)
	}
	if !providerCfg.Enabled {
		return "", ProviderInstanceConfig{}, "", fmt.Errorf("%s is disabled", what)
	}
	return id, providerCfg, source, nil
}

// enabledIDs lists enabled provider ids in sorted order.
func (r *Registry) enabledIDs() []string {
	ids := make([]string, 0, len(r.cfg.Providers))
	for id, providerCfg := range r.cfg.Providers {
		if providerCfg.Enabled {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func hasRole(roles []string, role string) bool {
	for _, candidate := range roles {
		if strings.EqualFold(strings.TrimSpace(candidate), role) {
			return true
		}
	}
	return false
}

// selectCredential returns the credential to use and a key identifying it for
// driver reuse. Only the highest-priority usable credentials compete; the
// configured default label overrides the policy. rrNext advances the
// round-robin cursor for a priority group and may be nil.
func selectCredential(cfg ProviderInstanceConfig, rrNext func(groupKey string, n int) int) (CredentialConfig, string, error) {
	if len(cfg.Credentials) == 0 {
		return CredentialConfig{}, "", fmt.Errorf("no credentials configured")
	}

	var usable []CredentialConfig
	for _, cred := range cfg.Credentials {
		disabled := !cred.Enabled && strings.TrimSpace(cred.Label) != ""
		if disabled || strings.TrimSpace(cred.APIKey) == "" {
			continue
		}
		usable = append(usable, cred)
	}
	if len(usable) == 0 {
		// Hand back the first entry so doctor can report the missing key.
		return cfg.Credentials[0], credentialKey(cfg.Credentials[0], "0"), nil
	}

	if want := strings.TrimSpace(cfg.DefaultCredential); want != "" {
		for _, cred := range usable {
			if strings.EqualFold(strings.TrimSpace(cred.Label), want) {
				return cred, strings.TrimSpace(cred.Label), nil
			}
		}
	}

	top := usable[0].Priority
	for _, cred := range usable {
		if cred.Priority > top {
			top = cred.Priority
		}
	}
	var group []CredentialConfig
	for _, cred := range usable {
		if cred.Priority == top {
			group = append(group, cred)
		}
	}

	pick := 0
	if strings.EqualFold(strings.TrimSpace(cfg.SelectionPolicy), "round_robin") && rrNext != nil {
		pick = rrNext(strconv.Itoa(top), len(group))
	}
	return group[pick], credentialKey(group[pick], "p"+strconv.Itoa(top)), nil
}

func credentialKey(cred CredentialConfig, fallback string) string {
	if label := strings.TrimSpace(cred.Label); label != "" {
		return label
	}
	return fallback
}

func (r *Registry) driverFor(id string, providerCfg ProviderInstanceConfig, cred CredentialConfig, credKey string) (driver.Driver, error) {
	key := id
	if credKey != "" {
		key += ":" + credKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if drv, ok := r.drivers[key]; ok {
		return drv, nil
	}
	drv, err := newDriver(providerCfg, cred.APIKey, r.cfg)
	if err != nil {
		return nil, fmt.Errorf("provider %q: %w", id, err)
	}
	r.drivers[key] = drv
	return drv, nil
}

func newDriver(providerCfg ProviderInstanceConfig, apiKey string, cfg Config) (driver.Driver, error) {
	kind := strings.ToLower(strings.TrimSpace(providerCfg.AIProvider))
	switch kind {
	case "openai", "gateway", "xai":
		baseURL := providerCfg.BaseURL
		if kind == "xai" && strings.TrimSpace(baseURL) == "" {
			baseURL = defaultXAIBaseURL
		}
		client := openai.NewClient(baseURL, apiKey)
		client.Provider = kind
		client.Timeout = cfg.DefaultTimeout
		return client, nil
	case "gemini", "google":
		client := gemini.NewClient(providerCfg.BaseURL, apiKey)
		client.Timeout = cfg.DefaultTimeout
		return client, nil
	case "":
		return nil, fmt.Errorf("unsupported ai_provider %q", "(unset)")
	default:
		return nil, fmt.Errorf("unsupported ai_provider %q", kind)
	}
}

// resolveModel picks the explicit override, then the provider's default model,
// then the prompt's first preferred model.
func resolveModel(providerCfg ProviderInstanceConfig, promptDef *prompt.Prompt, override string) (string, error) {
	model, _, err := pickModel(providerCfg, promptDef, override)
	return model, err
}

func pickModel(providerCfg ProviderInstanceConfig, promptDef *prompt.Prompt, override string) (string, string, error) {
	if model := strings.TrimSpace(override); model != "" {
		return model, modelFromOverride, nil
	}
	if model := strings.TrimSpace(providerCfg.Models["default"]); model != "" {
		return model, modelFromProvider, nil
	}
	for _, model := range preferredModels(promptDef) {
		if model = strings.TrimSpace(model); model != "" {
			return model, modelFromPreferred, nil
		}
	}
	return "", "", fmt.Errorf("model not configured")
}

// PreferredModel returns the prompt's first preferred model hint, or "".
func PreferredModel(promptDef *prompt.Prompt) string {
	for _, model := range preferredModels(promptDef) {
		if model = strings.TrimSpace(model); model != "" {
			return model
		}
	}
	return ""
}

// preferredModels reads the preferred_models provider hint, which may be a
// single string or a list.
func preferredModels(promptDef *prompt.Prompt) []string {
	if promptDef == nil {
		return nil
	}

	switch hint := promptDef.Config.ProviderHints["preferred_models"].(type) {
	case string:
		if strings.TrimSpace(hint) == "" {
			return nil
		}
		return []string{hint}
	case []string:
		return hint
	case []any:
		var models []string
		for _, item := range hint {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				models = append(models, s)
			}
		}
		return models
	}
	return nil
}

func (r *Registry) rrIndex(key string, n int) int {
	if r == nil || n <= 1 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.cursors[key] % n
	r.cursors[key]++
	return idx
}
