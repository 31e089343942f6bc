package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"runtime"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/fulmenhq/gofulmen/crucible"
)

// Build metadata, injected from main via SetVersionInfo.
var (
	AppVersion   = "dev"
	AppCommit    = "unknown"
	AppBuildDate = "unknown"

	appIdentity *appidentity.Identity
	serviceInfo ServiceInfo
)

// SetVersionInfo records the build metadata reported by /version.
func SetVersionInfo(version, commit, buildDate string) {
	AppVersion = version
	AppCommit = commit
	AppBuildDate = buildDate
}

// SetAppIdentity records the embedded app identity.
func SetAppIdentity(identity *appidentity.Identity) {
	appIdentity = identity
}

// SetServiceInfo records how the running service stores and analyzes searches.
func SetServiceInfo(info ServiceInfo) {
	serviceInfo = info
}

// VersionResponse is the body of /version and of `headhunter version -o json`.
type VersionResponse struct {
	App          AppInfo      `json:"app"`
	Service      *ServiceInfo `json:"service,omitempty"`
	Dependencies DepInfo      `json:"dependencies"`
	Runtime      RuntimeInfo  `json:"runtime"`
}

// AppInfo holds build metadata.
type AppInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version,omitempty"`
}

// ServiceInfo describes the search backends of a running server.
type ServiceInfo struct {
	StoreDriver  string `json:"store_driver"`
	AnalysisMode string `json:"analysis_mode"`
	RedisEvents  bool   `json:"redis_events"`
}

// DepInfo holds the gofulmen and crucible versions.
type DepInfo struct {
	Gofulmen string `json:"gofulmen"`
	Crucible string `json:"crucible"`
}

// RuntimeInfo describes the process.
type RuntimeInfo struct {
	Platform      string `json:"platform"`
	NumCPU        int    `json:"num_cpu"`
	NumGoroutines int    `json:"num_goroutines"`
}

// BuildVersion assembles the version report.
func BuildVersion() VersionResponse {
	name := "unknown"
	if appIdentity != nil && appIdentity.BinaryName != "" {
		name = appIdentity.BinaryName
	} else if len(os.Args) > 0 && os.Args[0] != "" {
		name = filepath.Base(os.Args[0])
	}

	deps := crucible.GetVersion()
	resp := VersionResponse{
		App: AppInfo{
			Name:      name,
			Version:   AppVersion,
			Commit:    AppCommit,
			BuildDate: AppBuildDate,
			GoVersion: runtime.Version(),
		},
		Dependencies: DepInfo{Gofulmen: deps.Gofulmen, Crucible: deps.Crucible},
		Runtime: RuntimeInfo{
			Platform:      runtime.GOOS + "/" + runtime.GOARCH,
			NumCPU:        runtime.NumCPU(),
			NumGoroutines: runtime.NumGoroutine(),
		},
	}
	if serviceInfo != (ServiceInfo{}) {
		info := serviceInfo
		resp.Service = &info
	}
	return resp
}

// VersionHandler serves /version.
func VersionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, BuildVersion())
}
