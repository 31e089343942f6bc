package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/headhuntertrace/headhunter/internal/ailink"
	"github.com/headhuntertrace/headhunter/internal/config"
	"github.com/headhuntertrace/headhunter/internal/observability"
)

var (
	doctorAILinkRole  string
	doctorAILinkModel string
)

var doctorAILinkCmd = &cobra.Command{
	Use:   "ailink [prompt-slug]",
	Short: "Show which provider, model and credential a prompt resolves to",
	Long: `Resolve a role (default: the prompt slug, osint-search) the way the
analysis function does and print the provider, model and credential picked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Context())
		if err != nil {
			return err
		}

		slug := ailink.SearchPromptSlug
		if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
			slug = strings.TrimSpace(args[0])
		}
		role := strings.TrimSpace(doctorAILinkRole)
		if role == "" {
			role = slug
		}

		resolved, preferred, err := resolvePromptProvider(cfg, slug, role, doctorAILinkModel)
		if err != nil {
			return err
		}
		if strings.TrimSpace(resolved.Credential.APIKey) == "" {
			observability.CLILogger.Warn("Selected credential has no API key",
				zap.String("provider", resolved.ProviderID))
		}
		writeResolution(cmd.OutOrStdout(), slug, role, preferred, resolved)
		return nil
	},
}

// resolvePromptProvider loads prompt slug and resolves role for it. It also
// returns the prompt's preferred model hint.
func resolvePromptProvider(cfg *config.Config, slug, role, model string) (*ailink.ResolvedProvider, string, error) {
	registry, err := buildPromptRegistry(cfg)
	if err != nil {
		return nil, "", fmt.Errorf("load prompt registry: %w", err)
	}
	promptDef, err := registry.Get(slug)
	if err != nil {
		return nil, "", fmt.Errorf("prompt not found: %w", err)
	}
	resolved, err := ailink.NewRegistry(cfg.AILink).Resolve(role, promptDef, model)
	if err != nil {
		return nil, "", fmt.Errorf("resolve provider: %w", err)
	}
	return resolved, ailink.PreferredModel(promptDef), nil
}

// resolveSearchProvider resolves the provider the analysis function would use.
func resolveSearchProvider(cfg *config.Config, role, model string) (*ailink.ResolvedProvider, error) {
	if strings.TrimSpace(role) == "" {
		role = ailink.SearchPromptSlug
	}
	resolved, _, err := resolvePromptProvider(cfg, ailink.SearchPromptSlug, role, model)
	return resolved, err
}

func writeResolution(w io.Writer, slug, role, preferred string, resolved *ailink.ResolvedProvider) {
	p := resolved.Provider
	line := func(label string, value any) { _, _ = fmt.Fprintf(w, "  %-20s %v\n", label+":", value) }

	_, _ = fmt.Fprintln(w, "Provider Resolution")
	line("role", role)
	line("prompt", slug)
	line("source", resolved.Source)
	if resolved.Source == "routing" {
		line("routing", role+" -> "+resolved.ProviderID)
	}
	line("provider_id", resolved.ProviderID)
	line("ai_provider", p.AIProvider)
	line("base_url", resolved.BaseURL)
	line("model", resolved.Model)
	line("model_source", resolved.ModelSource)
	if preferred != "" && preferred != resolved.Model {
		line("prompt.preferred", preferred+" (not used)")
	}

	policy := strings.TrimSpace(p.SelectionPolicy)
	if policy == "" {
		policy = "priority"
	}
	_, _ = fmt.Fprintln(w, "\nCredential Selection")
	line("selection_policy", policy)
	if d := strings.TrimSpace(p.DefaultCredential); d != "" {
		line("default_credential", d)
	}
	line("label", resolved.Credential.Label)
	line("priority", resolved.Credential.Priority)
	if strings.TrimSpace(resolved.Credential.APIKey) != "" {
		line("api_key", "(set)")
	} else {
		line("api_key", "(not set)")
	}
}

func init() {
	doctorCmd.AddCommand(doctorAILinkCmd)

	doctorAILinkCmd.Flags().StringVar(&doctorAILinkRole, "role", "", "role to resolve (defaults to the prompt slug)")
	doctorAILinkCmd.Flags().StringVar(&doctorAILinkModel, "model", "", "model override (defaults to provider, then prompt)")
}
