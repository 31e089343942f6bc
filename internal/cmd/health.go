package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/headhuntertrace/headhunter/internal/ailink"
	errwrap "github.com/headhuntertrace/headhunter/internal/errors"
	"github.com/headhuntertrace/headhunter/internal/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long:  "Run a self-health check to verify the application can start successfully.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		observability.CLILogger.Info("Running health check...")

		// Check 1: Version info available
		if versionInfo.Version == "" {
			observability.CLILogger.Error("❌ FAIL: Version information missing")
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Version information missing",
				errwrap.New(errwrap.CodeConfigInvalid, "Version information missing"))
			return
		}
		observability.CLILogger.Debug("Version check passed", zap.String("version", versionInfo.Version))
		observability.CLILogger.Info("✅ Version information available")

		// Check 2: Configuration loads and validates
		cfg, err := loadConfig(ctx)
		if err != nil {
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Configuration invalid",
				errwrap.Wrap(ctx, errwrap.CodeConfigInvalid, err, "configuration invalid"))
			return
		}
		observability.CLILogger.Info("✅ Configuration valid")

		// Check 3: Store reachable and migrated
		st, err := openStore(ctx, cfg)
		if err != nil {
			ExitWithCode(observability.CLILogger, foundry.ExitExternalServiceUnavailable, "Store unavailable",
				errwrap.WrapDatabaseError(ctx, err, "store unavailable"))
			return
		}
		pingErr := st.Ping(ctx)
		_ = st.Close()
		if pingErr != nil {
			ExitWithCode(observability.CLILogger, foundry.ExitExternalServiceUnavailable, "Store ping failed",
				errwrap.WrapDatabaseError(ctx, pingErr, "store ping failed"))
			return
		}
		observability.CLILogger.Info("✅ Store reachable", zap.String("driver", cfg.Store.Driver))

		// Check 4: Search prompt loads
		registry, err := buildPromptRegistry(cfg)
		if err == nil {
			_, err = registry.Get(ailink.SearchPromptSlug)
		}
		if err != nil {
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Search prompt unavailable",
				errwrap.Wrap(ctx, errwrap.CodeConfigInvalid, err, "search prompt unavailable"))
			return
		}
		observability.CLILogger.Info("✅ Search prompt loaded", zap.String("prompt", ailink.SearchPromptSlug))

		// Overall status
		observability.CLILogger.Info("")
		observability.CLILogger.Info("✅ All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
