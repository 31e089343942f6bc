package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/headhuntertrace/headhunter/internal/config"
	"github.com/headhuntertrace/headhunter/internal/observability"
)

var envInfoJSON bool

// envSection is one titled block of envinfo output.
type envSection struct {
	Title  string     `json:"title"`
	Fields []envField `json:"fields"`
}

type envField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (s *envSection) add(name, value string) {
	s.Fields = append(s.Fields, envField{Name: name, Value: value})
}

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display build, runtime, configuration and analysis provider settings. Secrets are masked.",
	RunE: func(cmd *cobra.Command, args []string) error {
		sections := buildInfoSections()

		cfg, err := config.Load(cmd.Context(), nil)
		if err != nil {
			observability.CLILogger.Warn("Config load failed", zap.Error(err))
		} else {
			sections = append(sections, configSections(cfg)...)
		}

		out := cmd.OutOrStdout()
		if envInfoJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(sections)
		}
		return renderEnvSections(out, sections)
	},
}

func buildInfoSections() []envSection {
	identity := GetAppIdentity()
	name := ""
	if identity != nil {
		name = identity.BinaryName
	}
	ssot := crucible.GetVersion()

	app := envSection{Title: "Application"}
	app.add("name", name)
	app.add("version", versionInfo.Version)
	app.add("commit", versionInfo.Commit)
	app.add("built", versionInfo.BuildDate)

	libs := envSection{Title: "SSOT"}
	libs.add("gofulmen", ssot.Gofulmen)
	libs.add("crucible", ssot.Crucible)

	rt := envSection{Title: "Runtime"}
	rt.add("go", runtime.Version())
	rt.add("os/arch", runtime.GOOS+"/"+runtime.GOARCH)
	rt.add("cpus", strconv.Itoa(runtime.NumCPU()))

	return []envSection{app, libs, rt}
}

func configSections(cfg *config.Config) []envSection {
	general := envSection{Title: "Configuration"}
	general.add("config file", config.DefaultConfigPath())
	general.add("server", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
	general.add("admin token", setOrNot(cfg.Server.AdminToken))
	general.add("log level", cfg.Logging.Level)
	general.add("log profile", cfg.Logging.Profile)
	general.add("metrics port", strconv.Itoa(cfg.Metrics.Port))
	general.add("store driver", cfg.Store.Driver)
	if strings.TrimSpace(cfg.Store.URL) != "" {
		general.add("store url", redactURL(cfg.Store.URL))
	} else {
		general.add("store path", cfg.Store.Path)
	}

	search := envSection{Title: "Search"}
	search.add("analysis mode", cfg.Analysis.Mode)
	if strings.EqualFold(cfg.Analysis.Mode, "remote") {
		search.add("function url", cfg.Analysis.URL)
	}
	search.add("timeout", cfg.Analysis.Timeout.String())
	search.add("credits", fmt.Sprintf("free=%d premium_basic=%d premium_pro=%d enterprise=%d",
		cfg.Credits.Free, cfg.Credits.PremiumBasic, cfg.Credits.PremiumPro, cfg.Credits.Enterprise))
	search.add("report dir", cfg.Report.Dir)
	if strings.TrimSpace(cfg.Events.RedisURL) != "" {
		search.add("redis events", redactURL(cfg.Events.RedisURL)+" channel "+cfg.Events.Channel)
	} else {
		search.add("redis events", "(disabled)")
	}

	ai := envSection{Title: "AILink"}
	ai.add("default provider", cfg.AILink.DefaultProvider)
	ai.add("default timeout", cfg.AILink.DefaultTimeout.String())
	ids := make([]string, 0, len(cfg.AILink.Providers))
	for id := range cfg.AILink.Providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		p := cfg.AILink.Providers[id]
		key := ""
		if len(p.Credentials) > 0 {
			key = p.Credentials[0].APIKey
		}
		ai.add(id, fmt.Sprintf("%s enabled=%t model=%s api_key=%s",
			p.AIProvider, p.Enabled, p.Models["default"], setOrNot(key)))
	}

	return []envSection{general, search, ai}
}

func renderEnvSections(w io.Writer, sections []envSection) error {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	for i, s := range sections {
		if i > 0 {
			t.AppendSeparator()
		}
		t.AppendRow(table.Row{s.Title, ""})
		for _, f := range s.Fields {
			t.AppendRow(table.Row{"  " + f.Name, f.Value})
		}
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// redactURL masks the password of a connection URL.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}

func setOrNot(secret string) string {
	if strings.TrimSpace(secret) == "" {
		return "(not set)"
	}
	return "(set)"
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
	envInfoCmd.Flags().BoolVar(&envInfoJSON, "json", false, "print the sections as JSON")
}
