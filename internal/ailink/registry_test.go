package ailink

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/headhuntertrace/headhunter/internal/ailink/driver/gemini"
	"github.com/headhuntertrace/headhunter/internal/ailink/driver/openai"
	"github.com/headhuntertrace/headhunter/internal/ailink/prompt"
)

func gatewayProvider() ProviderInstanceConfig {
	return ProviderInstanceConfig{
		Enabled:    true,
		AIProvider: "gateway",
		BaseURL:    "https://gateway.example/v1",
		Models:     map[string]string{"default": "google/gemini-2.5-flash"},
		Credentials: []CredentialConfig{
			{Enabled: true, Label: "main", APIKey: "k1"},
		},
	}
}

func TestResolveModelOrder(t *testing.T) {
	promptDef := &prompt.Prompt{Config: prompt.Config{
		Slug:          "osint-search",
		ProviderHints: map[string]any{"preferred_models": []any{"hint-model"}},
	}}

	model, err := resolveModel(gatewayProvider(), promptDef, " override ")
	require.NoError(t, err)
	require.Equal(t, "override", model)

	model, err = resolveModel(gatewayProvider(), promptDef, "")
	require.NoError(t, err)
	require.Equal(t, "google/gemini-2.5-flash", model)

	model, err = resolveModel(ProviderInstanceConfig{}, promptDef, "")
	require.NoError(t, err)
	require.Equal(t, "hint-model", model)

	_, err = resolveModel(ProviderInstanceConfig{}, nil, "")
	require.ErrorContains(t, err, "model not configured")
}

func TestPreferredModelsShapes(t *testing.T) {
	mk := func(v any) *prompt.Prompt {
		return &prompt.Prompt{Config: prompt.Config{ProviderHints: map[string]any{"preferred_models": v}}}
	}
	require.Equal(t, []string{"a"}, preferredModels(mk("a")))
	require.Equal(t, []string{"a", "b"}, preferredModels(mk([]string{"a", "b"})))
	require.Equal(t, []string{"a"}, preferredModels(mk([]any{"a", 3, " "})))
	require.Nil(t, preferredModels(mk(42)))
	require.Nil(t, preferredModels(nil))
}

func TestSelectCredentialPriority(t *testing.T) {
	cfg := ProviderInstanceConfig{Credentials: []CredentialConfig{
		{Enabled: true, Label: "low", APIKey: "a", Priority: 1},
		{Enabled: true, Label: "high", APIKey: "b", Priority: 5},
		{Enabled: false, Label: "off", APIKey: "c", Priority: 9},
	}}

	cred, key, err := selectCredential(cfg, nil)
	require.NoError(t, err)
	require.Equal(t, "high", key)
	require.Equal(t, "b", cred.APIKey)

	cfg.DefaultCredential = "LOW"
	cred, _, err = selectCredential(cfg, nil)
	require.NoError(t, err)
	require.Equal(t, "a", cred.APIKey)
}

func TestSelectCredentialRoundRobin(t *testing.T) {
	cfg := ProviderInstanceConfig{
		SelectionPolicy: "round_robin",
		Credentials: []CredentialConfig{
			{Enabled: true, Label: "one", APIKey: "a"},
			{Enabled: true, Label: "two", APIKey: "b"},
		},
	}
	r := NewRegistry(Config{})
	next := func(group string, n int) int { return r.rrIndex("p:"+group, n) }

	var seen []string
	for i := 0; i < 4; i++ {
		_, key, err := selectCredential(cfg, next)
		require.NoError(t, err)
		seen = append(seen, key)
	}
	require.Equal(t, []string{"one", "two", "one", "two"}, seen)
}

func TestSelectCredentialNoneConfigured(t *testing.T) {
	_, _, err := selectCredential(ProviderInstanceConfig{}, nil)
	require.ErrorContains(t, err, "no credentials")
}

func TestResolveProviderOrder(t *testing.T) {
	gemCfg := ProviderInstanceConfig{
		Enabled:     true,
		AIProvider:  "gemini",
		Models:      map[string]string{"default": "gemini-2.5-flash"},
		Roles:       []string{"osint-search"},
		Credentials: []CredentialConfig{{Enabled: true, Label: "g", APIKey: "gk"}},
	}

	r := NewRegistry(Config{
		DefaultProvider: "lovable",
		Providers: map[string]ProviderInstanceConfig{
			"lovable": gatewayProvider(),
			"google":  gemCfg,
		},
		Routing: map[string]string{"summary": "lovable"},
	})

	id, _, err := r.resolveProvider("summary")
	require.NoError(t, err)
	require.Equal(t, "lovable", id)

	id, _, err = r.resolveProvider("osint-search")
	require.NoError(t, err)
	require.Equal(t, "google", id)

	id, _, err = r.resolveProvider("other")
	require.NoError(t, err)
	require.Equal(t, "lovable", id)
}

func TestResolveProviderSoleEnabled(t *testing.T) {
	disabled := gatewayProvider()
	disabled.Enabled = false

	r := NewRegistry(Config{Providers: map[string]ProviderInstanceConfig{
		"off": disabled,
		"on":  gatewayProvider(),
	}})
	id, _, err := r.resolveProvider("osint-search")
	require.NoError(t, err)
	require.Equal(t, "on", id)

	r = NewRegistry(Config{Providers: map[string]ProviderInstanceConfig{"off": disabled}})
	_, _, err = r.resolveProvider("osint-search")
	require.ErrorContains(t, err, "no enabled providers")
}

func TestResolveProviderRoutingErrors(t *testing.T) {
	disabled := gatewayProvider()
	disabled.Enabled = false

	r := NewRegistry(Config{
		Providers: map[string]ProviderInstanceConfig{"off": disabled},
		Routing:   map[string]string{"osint-search": "off", "missing": "nope"},
	})

	_, _, err := r.resolveProvider("osint-search")
	require.ErrorContains(t, err, "disabled")

	_, _, err = r.resolveProvider("missing")
	require.ErrorContains(t, err, "unknown provider")
}

func TestResolveBuildsDrivers(t *testing.T) {
	gemCfg := ProviderInstanceConfig{
		Enabled:     true,
		AIProvider:  "gemini",
		Models:      map[string]string{"default": "gemini-2.5-flash"},
		Credentials: []CredentialConfig{{Enabled: true, APIKey: "gk"}},
	}
	xaiCfg := ProviderInstanceConfig{
		Enabled:     true,
		AIProvider:  "xai",
		Models:      map[string]string{"default": "grok-4"},
		Credentials: []CredentialConfig{{Enabled: true, APIKey: "xk"}},
	}

	r := NewRegistry(Config{
		Providers: map[string]ProviderInstanceConfig{
			"lovable": gatewayProvider(),
			"google":  gemCfg,
			"grok":    xaiCfg,
		},
		Routing: map[string]string{"a": "lovable", "b": "google", "c": "grok"},
	})

	resolved, err := r.Resolve("a", nil, "")
	require.NoError(t, err)
	client, ok := resolved.Driver.(*openai.Client)
	require.True(t, ok)
	require.Equal(t, "gateway", client.Provider)
	require.Equal(t, "https://gateway.example/v1", resolved.BaseURL)

	again, err := r.Resolve("a", nil, "")
	require.NoError(t, err)
	require.Same(t, resolved.Driver, again.Driver)

	resolved, err = r.Resolve("b", nil, "")
	require.NoError(t, err)
	_, ok = resolved.Driver.(*gemini.Client)
	require.True(t, ok)
	require.Equal(t, "gemini-2.5-flash", resolved.Model)

	resolved, err = r.Resolve("c", nil, "")
	require.NoError(t, err)
	require.Equal(t, defaultXAIBaseURL, resolved.BaseURL)
}

func TestResolveUnsupportedProvider(t *testing.T) {
	cfg := gatewayProvider()
	cfg.AIProvider = "carrier-pigeon"
	r := NewRegistry(Config{Providers: map[string]ProviderInstanceConfig{"x": cfg}})

	_, err := r.Resolve("osint-search", nil, "")
	require.ErrorContains(t, err, "unsupported ai_provider")
}

func TestResolveProviderRoleMembershipIsOrdered(t *testing.T) {
	withRole := func() ProviderInstanceConfig {
		cfg := gatewayProvider()
		cfg.Roles = []string{"OSINT-Search"}
		return cfg
	}

	r := NewRegistry(Config{Providers: map[string]ProviderInstanceConfig{
		"zeta":  withRole(),
		"alpha": withRole(),
		"mid":   withRole(),
	}})
	for i := 0; i < 10; i++ {
		id, _, err := r.resolveProvider("osint-search")
		require.NoError(t, err)
		require.Equal(t, "alpha", id)
	}

	_, _, err := r.resolveProvider("")
	require.ErrorContains(t, err, "no provider routing configured")
}

func TestResolveReportsSources(t *testing.T) {
	promptDef := &prompt.Prompt{Config: prompt.Config{
		ProviderHints: map[string]any{"preferred_models": "hint-model"},
	}}
	bare := gatewayProvider()
	bare.Models = nil

	r := NewRegistry(Config{
		DefaultProvider: "fallback",
		Providers: map[string]ProviderInstanceConfig{
			"routed":   gatewayProvider(),
			"fallback": bare,
		},
		Routing: map[string]string{"summary": "routed"},
	})

	resolved, err := r.Resolve("summary", promptDef, "")
	require.NoError(t, err)
	require.Equal(t, "routing", resolved.Source)
	require.Equal(t, "provider.models.default", resolved.ModelSource)

	resolved, err = r.Resolve("osint-search", promptDef, "")
	require.NoError(t, err)
	require.Equal(t, "default_provider", resolved.Source)
	require.Equal(t, "prompt.preferred_models", resolved.ModelSource)
	require.Equal(t, "hint-model", resolved.Model)

	resolved, err = r.Resolve("osint-search", promptDef, "pinned")
	require.NoError(t, err)
	require.Equal(t, "override", resolved.ModelSource)

	require.Equal(t, "hint-model", PreferredModel(promptDef))
	require.Empty(t, PreferredModel(nil))
}
