package config

import (
	"path/filepath"
	"strings"

	gfconfig "github.com/fulmenhq/gofulmen/config"
)

const fallbackName = "headhunter"

// identityNames returns the config and binary names of the loaded identity.
func identityNames() (configName, binaryName string) {
	configName, binaryName = fallbackName, fallbackName
	if appIdentity == nil {
		return configName, binaryName
	}
	if name := strings.TrimSpace(appIdentity.ConfigName); name != "" {
		configName = name
	}
	if name := strings.TrimSpace(appIdentity.BinaryName); name != "" {
		binaryName = name
	}
	return configName, binaryName
}

// DefaultConfigPath is config.yaml in the XDG config dir, or "" when the dir
// cannot be resolved.
func DefaultConfigPath() string {
	configName, _ := identityNames()
	dir := strings.TrimSpace(gfconfig.GetAppConfigDir(configName))
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// DefaultDataDir is the XDG data dir of the app.
func DefaultDataDir() string {
	configName, _ := identityNames()
	return gfconfig.GetAppDataDir(configName)
}

// DefaultStorePath is the local libsql database file.
func DefaultStorePath() string {
	_, binaryName := identityNames()
	return inDataDir(binaryName + ".db")
}

// DefaultReportDir holds saved PDF reports.
func DefaultReportDir() string {
	return inDataDir("reports")
}

// inDataDir joins name onto the data dir, or the working directory when no
// data dir resolves.
func inDataDir(name string) string {
	dir := strings.TrimSpace(DefaultDataDir())
	if dir == "" {
		return "./" + name
	}
	return filepath.Join(dir, name)
}
