package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fulmenhq/gofulmen/appidentity"
	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/headhuntertrace/headhunter/internal/ailink/driver"
	"github.com/headhuntertrace/headhunter/internal/appid"
	"github.com/headhuntertrace/headhunter/internal/config"
	"github.com/headhuntertrace/headhunter/internal/observability"
)

var (
	cfgFile   string
	verbose   bool
	traceFile string

	appIdentity *appidentity.Identity

	// versionInfo is stamped by main via ldflags.
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo records build metadata from main.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// GetAppIdentity returns the identity loaded from .fulmen/app.yaml. It is nil
// before initConfig runs unless the embedded identity loaded at init.
func GetAppIdentity() *appidentity.Identity {
	return appIdentity
}

var rootCmd = &cobra.Command{
	Use:   filepath.Base(os.Args[0]),
	Short: "Digital footprint investigation and OSINT reports",
	Long: `Search public social profiles for a name, email or phone number,
keep a per-user search history with credits, and render PDF reports.`,
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		driver.DisableTracing()
	},
}

// Execute runs the root command. main calls it once.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Config loading must not emit metrics to stdout; serve installs the real
	// telemetry system later.
	if sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: false}); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	// Help text is rendered before OnInitialize hooks run.
	if identity, err := appid.Get(context.Background()); err == nil {
		applyIdentity(identity)
	}

	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (optional; defaults to app identity config path)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	flags.StringVar(&traceFile, "trace", "", "append analysis provider requests and responses to an NDJSON file")
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
}

// applyIdentity renames the root command and its help after identity.
func applyIdentity(identity *appidentity.Identity) {
	if identity == nil {
		return
	}
	appIdentity = identity
	if identity.BinaryName != "" {
		rootCmd.Use = identity.BinaryName
	}
	if identity.Description != "" {
		rootCmd.Short = identity.Description
		rootCmd.Long = fmt.Sprintf("%s - %s\n\n%s", identity.BinaryName, identity.Description, rootCmd.Long)
	}
	if f := rootCmd.PersistentFlags().Lookup("config"); f != nil && identity.ConfigName != "" {
		f.Usage = fmt.Sprintf("config file (default is $XDG_CONFIG_HOME/%s/config.yaml)", identity.ConfigName)
	}
}

// initConfig loads identity, logger, tracing and the viper config sources.
func initConfig() {
	identity, err := appid.Get(context.Background())
	if err != nil || identity == nil {
		ExitWithCodeStderr(foundry.ExitFileNotFound, "Failed to load app identity from .fulmen/app.yaml", err)
		return
	}
	appIdentity = identity

	observability.InitCLILogger(identity.BinaryName, verbose)
	log := observability.CLILogger

	if traceFile != "" {
		if _, err := driver.EnableTracing(traceFile); err != nil {
			log.Warn("Failed to enable tracing", zap.String("file", traceFile), zap.Error(err))
		} else {
			log.Debug("Provider tracing enabled", zap.String("file", traceFile))
		}
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		addConfigSearchPaths(identity, log)
	}

	// viper appends its own separator to the prefix.
	viper.SetEnvPrefix(strings.TrimSuffix(identity.EnvPrefix, "_"))
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	switch err := viper.ReadInConfig(); {
	case err == nil:
		log.Debug("Using config file", zap.String("path", viper.ConfigFileUsed()))
	case isConfigNotFound(err):
		log.Debug("No config file found, using defaults and environment variables")
	default:
		log.Warn("Error reading config file", zap.Error(err))
	}

	config.SetDefaults(viper.GetViper())
}

// addConfigSearchPaths registers the XDG config dir (or ~/.<name> without
// one) and ./config.
func addConfigSearchPaths(identity *appidentity.Identity, log *logging.Logger) {
	dir := gfconfig.GetAppConfigDir(identity.ConfigName)
	if dir == "" {
		log.Debug("No XDG config directory, falling back to home directory")
		home, err := os.UserHomeDir()
		if err != nil {
			ExitWithCode(log, foundry.ExitFileNotFound, "Could not find home directory", err)
			return
		}
		viper.AddConfigPath(home)
		viper.SetConfigName("." + identity.ConfigName)
	} else {
		viper.AddConfigPath(dir)
		viper.SetConfigName("config")
		if identity.BinaryName != "" && identity.BinaryName != identity.ConfigName {
			if alt := gfconfig.GetAppConfigDir(identity.BinaryName); alt != "" {
				viper.AddConfigPath(alt)
			}
		}
	}
	viper.AddConfigPath("./config")
	viper.SetConfigType("yaml")
}

func isConfigNotFound(err error) bool {
	_, ok := err.(viper.ConfigFileNotFoundError)
	return ok
}
