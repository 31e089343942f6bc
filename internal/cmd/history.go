package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/headhuntertrace/headhunter/internal/output"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List a user's recent searches, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		userFlag, _ := cmd.Flags().GetString("user")
		limit, _ := cmd.Flags().GetInt("limit")
		if limit <= 0 {
			return fmt.Errorf("--limit must be positive")
		}

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

		records, err := st.ListSearches(ctx, session.User.ID, limit)
		if err != nil {
			return fmt.Errorf("list searches: %w", err)
		}
		return emit(cmd, func(f output.Formatter) (string, error) { return f.FormatHistory(records) })
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().String("user", "", "User id or email (required)")
	historyCmd.Flags().Int("limit", 10, "Number of searches to show")
	addOutputFlags(historyCmd)
}
