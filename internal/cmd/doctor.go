package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/headhuntertrace/headhunter/internal/ailink"
	"github.com/headhuntertrace/headhunter/internal/config"
	errwrap "github.com/headhuntertrace/headhunter/internal/errors"
	"github.com/headhuntertrace/headhunter/internal/observability"
)

// checkStatus is the outcome of one doctor check.
type checkStatus int

const (
	checkOK checkStatus = iota
	checkWarn
	// checkStop fails the check and skips the ones after it.
	checkStop
)

// doctorCheck inspects one part of the installation. Checks share loaded
// state through env.
type doctorCheck struct {
	name string
	run  func(ctx context.Context, env *doctorEnv) (checkStatus, string, error)
}

type doctorEnv struct {
	cfg *config.Config
}

var doctorChecks = []doctorCheck{
	{"runtime", func(context.Context, *doctorEnv) (checkStatus, string, error) {
		v := crucible.GetVersion()
		if v.Crucible == "" || v.Gofulmen == "" {
			return checkStop, "cannot read gofulmen/crucible versions", nil
		}
		return checkOK, fmt.Sprintf("%s, gofulmen v%s (crucible v%s)", runtime.Version(), v.Gofulmen, v.Crucible), nil
	}},
	{"config directory", func(context.Context, *doctorEnv) (checkStatus, string, error) {
		path := config.DefaultConfigPath()
		if path == "" {
			return checkStop, "cannot resolve config directory", nil
		}
		return checkOK, filepath.Dir(path), nil
	}},
	{"configuration", func(ctx context.Context, env *doctorEnv) (checkStatus, string, error) {
		cfg, err := config.Load(ctx, nil)
		if err != nil {
			return checkStop, "invalid", err
		}
		env.cfg = cfg
		return checkOK, "analysis mode " + cfg.Analysis.Mode, nil
	}},
	{"database", func(ctx context.Context, env *doctorEnv) (checkStatus, string, error) {
		return checkDatabase(ctx, env.cfg)
	}},
	{"analysis backend", func(ctx context.Context, env *doctorEnv) (checkStatus, string, error) {
		if strings.EqualFold(env.cfg.Analysis.Mode, "remote") {
			return checkOK, "remote function " + env.cfg.Analysis.URL, nil
		}
		resolved, err := resolveSearchProvider(env.cfg, "", "")
		if err != nil {
			return checkWarn, "no provider for " + ailink.SearchPromptSlug + "; run 'doctor init' or configure ailink.providers", err
		}
		if strings.TrimSpace(resolved.Credential.APIKey) == "" {
			return checkWarn, resolved.ProviderID + " has no API key", nil
		}
		return checkOK, fmt.Sprintf("%s (%s)", resolved.ProviderID, resolved.Model), nil
	}},
	{"report directory", func(ctx context.Context, env *doctorEnv) (checkStatus, string, error) {
		if err := os.MkdirAll(env.cfg.Report.Dir, 0o755); err != nil {
			return checkWarn, env.cfg.Report.Dir + " not writable", err
		}
		return checkOK, env.cfg.Report.Dir, nil
	}},
}

// runDoctorChecks runs checks in order and logs each outcome. It reports
// whether every check that ran passed.
func runDoctorChecks(ctx context.Context, log *logging.Logger, checks []doctorCheck) bool {
	env := &doctorEnv{}
	healthy := true
	for i, check := range checks {
		status, detail, err := check.run(ctx, env)
		line := fmt.Sprintf("[%d/%d] %s... ", i+1, len(checks), check.name)
		fields := []zap.Field{zap.String("check", check.name)}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		switch status {
		case checkOK:
			log.Info(line+"✅ "+detail, fields...)
			continue
		case checkWarn:
			log.Warn(line+"⚠️  "+detail, fields...)
			healthy = false
			continue
		}
		log.Error(line+"❌ "+detail, fields...)
		if remaining := len(checks) - i - 1; remaining > 0 {
			log.Warn(fmt.Sprintf("       %d remaining checks skipped.", remaining))
		}
		return false
	}
	return healthy
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Check the runtime, configuration, database, analysis provider and report directory, and suggest fixes.",
	Run: func(cmd *cobra.Command, args []string) {
		log := observability.CLILogger
		name := "headhunter"
		if identity := GetAppIdentity(); identity != nil && identity.BinaryName != "" {
			name = identity.BinaryName
		}

		log.Info("=== " + name + " doctor ===")
		ok := runDoctorChecks(cmd.Context(), log, doctorChecks)
		log.Info("")
		if !ok {
			log.Warn("⚠️  Some checks failed. Review the output above for details.")
			ExitWithCode(log, foundry.ExitFailure, "Diagnostics failed",
				errwrap.New(errwrap.CodeServiceUnavailable, "one or more doctor checks failed"))
			return
		}
		log.Info(fmt.Sprintf("✅ All checks passed! Your %s installation is healthy.", name))
	},
}

// checkDatabase opens and pings the configured store.
func checkDatabase(ctx context.Context, cfg *config.Config) (checkStatus, string, error) {
	target := redactURL(cfg.Store.URL)
	if target == "" {
		abs, _ := filepath.Abs(cfg.Store.Path)
		target = abs
		if info, err := os.Stat(abs); err == nil {
			target = fmt.Sprintf("%s (%s)", abs, humanize.Bytes(uint64(info.Size())))
		}
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return checkWarn, "cannot open " + target, err
	}
	defer func() { _ = st.Close() }()
	if err := st.Ping(ctx); err != nil {
		return checkWarn, "ping failed for " + target, err
	}
	return checkOK, st.Driver() + " " + target, nil
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
