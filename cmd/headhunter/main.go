package main

import (
	"github.com/fulmenhq/gofulmen/foundry"

	"github.com/headhuntertrace/headhunter/internal/cmd"
	"github.com/headhuntertrace/headhunter/internal/server/handlers"
)

// Set with -ldflags "-X main.version=... -X main.commit=... -X main.buildDate=...".
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)
	handlers.SetVersionInfo(version, commit, buildDate)

	if err := cmd.Execute(); err != nil {
		cmd.ExitWithCodeStderr(foundry.ExitFailure, "Command execution failed", err)
	}
}
