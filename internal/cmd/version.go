package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/headhuntertrace/headhunter/internal/server/handlers"
)

var (
	extended    bool
	versionJSON bool
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version information. Use --extended for Crucible and Go versions, --json for the /version payload.",
	RunE: func(cmd *cobra.Command, args []string) error {
		handlers.SetAppIdentity(GetAppIdentity())
		handlers.SetVersionInfo(versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate)
		report := handlers.BuildVersion()

		out := cmd.OutOrStdout()
		switch {
		case versionJSON:
			encoded, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(out, string(encoded))
		case extended:
			_, _ = fmt.Fprintf(out, "%s %s\nCommit: %s\nBuilt: %s\nGo: %s\n\nGofulmen: %s\nCrucible: %s\n",
				report.App.Name, report.App.Version, report.App.Commit, report.App.BuildDate,
				report.App.GoVersion, report.Dependencies.Gofulmen, report.Dependencies.Crucible)
		default:
			_, _ = fmt.Fprintf(out, "%s %s\n", report.App.Name, report.App.Version)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVarP(&extended, "extended", "e", false, "show extended version information")
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "print the version report as JSON")
}
