package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/headhuntertrace/headhunter/internal/ailink/prompt"
)

var ailinkListJSON bool

var ailinkCmd = &cobra.Command{
	Use:   "ailink",
	Short: "Inspect analysis prompts",
}

var ailinkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the prompts the analysis function can load",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Context())
		if err != nil {
			return err
		}
		registry, err := buildPromptRegistry(cfg)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if ailinkListJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(promptSummaries(registry.List()))
		}

		prompts := registry.List()
		if len(prompts) == 0 {
			_, err := fmt.Fprintln(out, "No prompts found.")
			return err
		}
		_, err = fmt.Fprintln(out, renderPromptTable(prompts))
		return err
	},
}

type promptSummary struct {
	Slug        string `json:"slug"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

func promptSummaries(prompts []*prompt.Prompt) []promptSummary {
	summaries := make([]promptSummary, 0, len(prompts))
	for _, p := range prompts {
		if p == nil {
			continue
		}
		summaries = append(summaries, promptSummary{
			Slug:        p.Config.Slug,
			Version:     p.Config.Version,
			Description: strings.TrimSpace(p.Config.Description),
		})
	}
	return summaries
}

func renderPromptTable(prompts []*prompt.Prompt) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Slug", "Version", "Description"})
	for _, s := range promptSummaries(prompts) {
		t.AppendRow(table.Row{s.Slug, s.Version, s.Description})
	}
	return t.Render()
}

func init() {
	rootCmd.AddCommand(ailinkCmd)
	ailinkCmd.AddCommand(ailinkListCmd)
	ailinkListCmd.Flags().BoolVar(&ailinkListJSON, "json", false, "print prompts as JSON")
}
