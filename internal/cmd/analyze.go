package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/headhuntertrace/headhunter/internal/analysis"
	"github.com/headhuntertrace/headhunter/internal/core/engine"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <query>",
	Short: "Call the analysis function directly",
	Long: `Call the analysis function for a query and print its response envelope.
No credit is spent and nothing is stored. Useful for checking provider and
prompt configuration.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		query := strings.Join(args, " ")
		model, _ := cmd.Flags().GetString("model")

		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		analyzer, err := buildAnalyzer(cfg, nil, model)
		if err != nil {
			return err
		}

		resp := analysis.Response{Query: query}
		data, runErr := analyzer.Analyze(ctx, engine.AnalysisRequest{Query: query})
		if runErr != nil {
			resp.Error = runErr.Error()
		} else {
			resp.Success = true
			resp.Data = data
		}

		encoded, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return runErr
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().String("model", "", "Model override for local analysis")
}
