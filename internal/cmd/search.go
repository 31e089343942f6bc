package cmd

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/headhuntertrace/headhunter/internal/core"
	"github.com/headhuntertrace/headhunter/internal/core/engine"
	"github.com/headhuntertrace/headhunter/internal/observability"
	"github.com/headhuntertrace/headhunter/internal/output"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run an OSINT search for a name, email or phone number",
	Long: `Run one search for the given user: spend a credit, call the analysis
function, persist the results and save a PDF report.

Examples:
  headhunter search "Jane Doe" --user jane@example.com
  headhunter search "+1 555 0100" --user 6f1c... --output json
  headhunter search janedoe --user jane@example.com --no-report`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().String("user", "", "User id or email to run the search as (required)")
	searchCmd.Flags().String("report-dir", "", "Directory for the PDF report (default: report.dir)")
	searchCmd.Flags().Bool("no-report", false, "Skip PDF report generation")
	searchCmd.Flags().String("model", "", "Model override for local analysis")
	addOutputFlags(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	query := strings.Join(args, " ")

	userFlag, _ := cmd.Flags().GetString("user")
	reportDir, _ := cmd.Flags().GetString("report-dir")
	noReport, _ := cmd.Flags().GetBool("no-report")
	model, _ := cmd.Flags().GetString("model")

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	session, err := resolveSession(ctx, st, userFlag)
	if err != nil {
		return err
	}

	analyzer, err := buildAnalyzer(cfg, nil, model)
	if err != nil {
		return err
	}
	publisher, closePublisher := buildPublisher(ctx, cfg, nil, observability.CLILogger)
	defer closePublisher()

	orch := buildOrchestrator(st, analyzer, publisher, observability.CLILogger)
	outcome, runErr := orch.Submit(ctx, session, query)

	view := &output.SearchView{}
	if outcome != nil {
		view.Record = outcome.Record
		view.Data = outcome.Data
	}
	if runErr != nil {
		msg := engine.UserMessage(runErr)
		view.Message = msg.Title + ": " + msg.Description
		observability.CLILogger.Debug("Search error", zap.Error(runErr))
	}

	if view.Record != nil && view.Record.Status == core.SearchCompleted && view.Data != nil && !noReport {
		if strings.TrimSpace(reportDir) == "" {
			reportDir = cfg.Report.Dir
		}
		doc, err := buildRenderer(cfg).Render(view.Record.Query, view.Data)
		if err != nil {
			observability.CLILogger.Warn("Report generation failed", zap.Error(err))
		} else if path, err := doc.Save(reportDir); err != nil {
			observability.CLILogger.Warn("Report could not be saved", zap.Error(err))
		} else {
			view.ReportPath = path
		}
	}

	if view.Record != nil {
		if err := emit(cmd, func(f output.Formatter) (string, error) { return f.FormatSearch(view) }); err != nil {
			return errors.Join(runErr, err)
		}
	} else if runErr != nil {
		observability.CLILogger.Error(view.Message)
	}

	if err := orch.RefreshSession(ctx, session); err == nil {
		observability.CLILogger.Debug("Credits remaining", zap.Int("credits", session.CreditsRemaining()))
	}
	return runErr
}
