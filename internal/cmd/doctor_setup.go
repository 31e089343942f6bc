package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/headhuntertrace/headhunter/internal/appid"
	"github.com/headhuntertrace/headhunter/internal/config"
	"github.com/headhuntertrace/headhunter/internal/observability"
)

var (
	initForce  bool
	initAPIKey string

	resetConfig  bool
	resetData    bool
	resetReports bool
	resetAll     bool
)

// setupEnvVars are reported by "doctor config" without the env prefix.
var setupEnvVars = []string{
	"AILINK_PROVIDERS_GEMINI_CREDENTIALS_0_API_KEY",
	"ANALYSIS_URL",
	"ANALYSIS_API_KEY",
	"ADMIN_TOKEN",
	"EVENTS_REDIS_URL",
}

var doctorInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long: `Write a starter config using the Gemini provider and the default credit
allotments. Pass --api-key=prompt to type the key instead of putting it on
the command line.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := userConfigPath()
		if err != nil {
			return err
		}
		if fileExists(path) && !initForce {
			return fmt.Errorf("%s already exists; pass --force to replace it", path)
		}

		key := strings.TrimSpace(initAPIKey)
		if strings.EqualFold(key, "prompt") {
			if key, err = readLine(cmd.InOrStdin(), cmd.OutOrStdout(), "Provider API key (blank to skip): "); err != nil {
				return err
			}
		}

		// #nosec G301 -- user config directory
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
		perm := fs.FileMode(0o644)
		if key != "" {
			perm = 0o600
		}
		if err := os.WriteFile(path, []byte(buildInitConfig(key)), perm); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		observability.CLILogger.Info("Wrote config", zap.String("path", path), zap.Bool("api_key", key != ""))
		return nil
	},
}

var doctorConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show config paths, environment overrides and effective settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := observability.CLILogger
		row := func(label, value string) { log.Info(fmt.Sprintf("  %-16s %s", label+":", value)) }

		log.Info("Paths:")
		path := config.DefaultConfigPath()
		row("config file", describePath(path))
		row("data directory", describePath(config.DefaultDataDir()))

		cfg, err := config.Load(cmd.Context(), nil)
		if err != nil {
			log.Warn("Config does not load", zap.Error(err))
			return nil
		}
		row("reports", describePath(cfg.Report.Dir))
		row("database", describeDatabase(cfg.Store))

		prefix := appid.EnvPrefix()
		log.Info("Environment:")
		for _, name := range setupEnvVars {
			row(prefix+name, setOrNot(os.Getenv(prefix+name)))
		}

		log.Info("Effective:")
		row("analysis.mode", cfg.Analysis.Mode)
		row("credits", fmt.Sprintf("free=%d premium_basic=%d premium_pro=%d enterprise=%d",
			cfg.Credits.Free, cfg.Credits.PremiumBasic, cfg.Credits.PremiumPro, cfg.Credits.Enterprise))
		row("events.redis", setOrNot(cfg.Events.RedisURL))
		return nil
	},
}

var doctorResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove the user config, local database or saved reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		if resetAll {
			resetConfig, resetData, resetReports = true, true, true
		}
		if !resetConfig && !resetData && !resetReports {
			return errors.New("nothing to reset: pass --config, --data, --reports or --all")
		}

		if resetConfig {
			path, err := userConfigPath()
			if err != nil {
				return err
			}
			if err := removeFile(path, "config file"); err != nil {
				return err
			}
		}
		if !resetData && !resetReports {
			return nil
		}

		cfg, err := loadConfig(cmd.Context())
		if err != nil {
			return err
		}
		if resetData {
			if strings.TrimSpace(cfg.Store.URL) != "" {
				return fmt.Errorf("store points at %s; reset only removes local databases", redactURL(cfg.Store.URL))
			}
			abs, _ := filepath.Abs(cfg.Store.Path)
			if err := removeFile(abs, "database"); err != nil {
				return err
			}
		}
		if resetReports {
			if err := os.RemoveAll(cfg.Report.Dir); err != nil {
				return fmt.Errorf("remove %s: %w", cfg.Report.Dir, err)
			}
			observability.CLILogger.Info("Removed reports", zap.String("path", cfg.Report.Dir))
		}
		return nil
	},
}

var doctorValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that the config file loads",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := userConfigPath()
		if err != nil {
			return err
		}
		if !fileExists(path) {
			return fmt.Errorf("no config file at %s; run 'doctor init'", path)
		}
		if _, err := config.Load(cmd.Context(), nil); err != nil {
			return err
		}
		observability.CLILogger.Info("Config OK", zap.String("path", path))
		return nil
	},
}

// buildInitConfig renders the starter config. Without a key the credential
// is left for the environment to fill.
func buildInitConfig(apiKey string) string {
	var b strings.Builder
	b.WriteString(`# headhunter config, written by 'headhunter doctor init'
analysis:
  mode: local
ailink:
  default_provider: gemini
  providers:
    gemini:
      enabled: true
      ai_provider: gemini
      models:
        default: gemini-2.5-flash
      credentials:
        - label: default
          priority: 0
`)
	if key := strings.TrimSpace(apiKey); key != "" {
		fmt.Fprintf(&b, "          api_key: %q\n", key)
	} else {
		fmt.Fprintf(&b, "          # api_key: \"\"  # or export %sAILINK_PROVIDERS_GEMINI_CREDENTIALS_0_API_KEY\n", appid.EnvPrefix())
	}
	b.WriteString(`credits:
  free: 3
  premium_basic: 20
  premium_pro: 100
`)
	return b.String()
}

func userConfigPath() (string, error) {
	path := config.DefaultConfigPath()
	if path == "" {
		return "", errors.New("cannot resolve the user config path")
	}
	return path, nil
}

func removeFile(path, what string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", what, err)
	}
	observability.CLILogger.Info("Removed "+what, zap.String("path", path), zap.Bool("existed", err == nil))
	return nil
}

func readLine(in io.Reader, out io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprint(out, prompt); err != nil {
		return "", err
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func describePath(path string) string {
	switch {
	case path == "":
		return "(not resolved)"
	case fileExists(path):
		return path
	default:
		return path + " (missing)"
	}
}

func describeDatabase(cfg config.StoreConfig) string {
	if strings.TrimSpace(cfg.URL) != "" {
		return fmt.Sprintf("%s (%s, remote)", redactURL(cfg.URL), cfg.Driver)
	}
	info, err := os.Stat(cfg.Path)
	if err != nil {
		return cfg.Path + " (not created yet)"
	}
	return fmt.Sprintf("%s (%s, modified %s)", cfg.Path, humanize.Bytes(uint64(info.Size())), humanize.Time(info.ModTime()))
}

func init() {
	doctorCmd.AddCommand(doctorInitCmd, doctorConfigCmd, doctorResetCmd, doctorValidateCmd)

	doctorInitCmd.Flags().BoolVar(&initForce, "force", false, "replace an existing config file")
	doctorInitCmd.Flags().StringVar(&initAPIKey, "api-key", "", "provider API key, or 'prompt' to type it")

	doctorResetCmd.Flags().BoolVar(&resetConfig, "config", false, "remove the user config file")
	doctorResetCmd.Flags().BoolVar(&resetData, "data", false, "remove the local database")
	doctorResetCmd.Flags().BoolVar(&resetReports, "reports", false, "remove saved PDF reports")
	doctorResetCmd.Flags().BoolVar(&resetAll, "all", false, "remove config, database and reports")
}
