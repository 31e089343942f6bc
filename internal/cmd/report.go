package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/headhuntertrace/headhunter/internal/core"
	"github.com/headhuntertrace/headhunter/internal/observability"
)

var reportCmd = &cobra.Command{
	Use:   "report <search-id>",
	Short: "Re-render the PDF report of a completed search",
	Long: `Re-render the PDF report of a completed search from its stored summary
and results. Only the owner of the search can render it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		userFlag, _ := cmd.Flags().GetString("user")
		dir, _ := cmd.Flags().GetString("dir")

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

		record, err := st.GetSearch(ctx, strings.TrimSpace(args[0]))
		if err != nil {
			return err
		}
		if record.UserID != session.User.ID {
			return fmt.Errorf("search %s not found", args[0])
		}
		if record.Status != core.SearchCompleted {
			return fmt.Errorf("search %s is %s; reports need a completed search", record.ID, record.Status)
		}

		results, err := st.ListResults(ctx, record.ID)
		if err != nil {
			return fmt.Errorf("load results: %w", err)
		}

		doc, err := buildRenderer(cfg).Render(record.Query, record.SearchData(results))
		if err != nil {
			return err
		}
		if strings.TrimSpace(dir) == "" {
			dir = cfg.Report.Dir
		}
		path, err := doc.Save(dir)
		if err != nil {
			return err
		}

		observability.CLILogger.Info("Report saved",
			zap.String("path", path),
			zap.String("report_id", doc.ReportID),
			zap.Int("pages", doc.Pages))
		fmt.Println(path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().String("user", "", "User id or email owning the search (required)")
	reportCmd.Flags().String("dir", "", "Output directory (default: report.dir)")
}
