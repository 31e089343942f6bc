package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/fulmenhq/gofulmen/errors"

	"github.com/headhuntertrace/headhunter/internal/metrics"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
	statusTimeout   = "timeout"
)

// HealthResponse is the body of the aggregate /health endpoint.
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ProbeResponse is the body of the live/ready/startup probes.
type ProbeResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthChecker is a dependency the service needs to answer searches, such as
// the store or the telemetry pipeline.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// CheckFunc adapts a function such as a store ping to HealthChecker.
type CheckFunc func(ctx context.Context) error

// CheckHealth calls f.
func (f CheckFunc) CheckHealth(ctx context.Context) error {
	return f(ctx)
}

// probe names a kubernetes-style endpoint and how long its checks may take.
type probe struct {
	name    string
	message string
	timeout time.Duration
}

var (
	probeAggregate = probe{name: "", message: "aggregate health check failed", timeout: 5 * time.Second}
	probeLive      = probe{name: "live", message: "liveness probe failed", timeout: 2 * time.Second}
	probeReady     = probe{name: "ready", message: "readiness probe failed", timeout: 5 * time.Second}
	probeStartup   = probe{name: "startup", message: "startup probe failed", timeout: 3 * time.Second}
)

// HealthManager runs the registered checks for every probe.
type HealthManager struct {
	checkers map[string]HealthChecker
	version  string
}

// NewHealthManager creates a manager reporting version.
func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		checkers: make(map[string]HealthChecker),
		version:  version,
	}
}

// RegisterChecker adds or replaces the checker called name.
func (hm *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	hm.checkers[name] = checker
}

// runHealthChecks calls each checker in name order. Checks not reached before
// ctx expires are reported as timed out.
func (hm *HealthManager) runHealthChecks(ctx context.Context) map[string]string {
	names := make([]string, 0, len(hm.checkers))
	for name := range hm.checkers {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(map[string]string, len(names))
	for _, name := range names {
		if ctx.Err() != nil {
			checks[name] = statusTimeout
			continue
		}
		start := time.Now()
		err := hm.checkers[name].CheckHealth(ctx)
		metrics.RecordHealthCheck(name, err == nil, time.Since(start))
		if err != nil {
			checks[name] = statusUnhealthy
		} else {
			checks[name] = statusHealthy
		}
	}
	return checks
}

// determineOverallStatus folds check results: any unhealthy check wins, then
// any timeout or degraded check.
func (hm *HealthManager) determineOverallStatus(checks map[string]string) string {
	overall := statusHealthy
	for _, status := range checks {
		switch status {
		case statusUnhealthy:
			return statusUnhealthy
		case statusDegraded, statusTimeout:
			overall = statusDegraded
		}
	}
	return overall
}

// serve runs the checks under p's timeout and writes either the probe body or
// a SERVICE_UNAVAILABLE envelope.
func (hm *HealthManager) serve(w http.ResponseWriter, r *http.Request, p probe, body func(status string, checks map[string]string) any) {
	ctx, cancel := context.WithTimeout(r.Context(), p.timeout)
	defer cancel()

	checks := hm.runHealthChecks(ctx)
	status := hm.determineOverallStatus(checks)
	if status == statusUnhealthy {
		envelope := errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", p.message)
		respondWithError(w, r, enrichHealthEnvelope(envelope, p.name, status, checks))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(body(status, checks))
}

func probeBody(status string, _ map[string]string) any {
	return ProbeResponse{Status: status, Timestamp: time.Now().UTC()}
}

// HealthHandler reports every check and the build version.
func (hm *HealthManager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	hm.serve(w, r, probeAggregate, func(status string, checks map[string]string) any {
		return HealthResponse{
			Status:    status,
			Version:   hm.version,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    checks,
		}
	})
}

// LivenessHandler answers the liveness probe.
func (hm *HealthManager) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	hm.serve(w, r, probeLive, probeBody)
}

// ReadinessHandler answers the readiness probe. An unreachable store makes the
// service unready since no search can be recorded.
func (hm *HealthManager) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	hm.serve(w, r, probeReady, probeBody)
}

// StartupHandler answers the startup probe.
func (hm *HealthManager) StartupHandler(w http.ResponseWriter, r *http.Request) {
	hm.serve(w, r, probeStartup, probeBody)
}

func enrichHealthEnvelope(envelope *errors.ErrorEnvelope, probe, status string, checks map[string]string) *errors.ErrorEnvelope {
	if envelope == nil {
		return nil
	}

	details := map[string]interface{}{"status": status}
	contextData := map[string]interface{}{"status": status}
	if probe != "" {
		details["probe"] = probe
		contextData["probe"] = probe
	}
	if len(checks) > 0 {
		details["checks"] = checks
	}

	var failing []string
	for name, result := range checks {
		if result != statusHealthy {
			failing = append(failing, name)
		}
	}
	if len(failing) > 0 {
		sort.Strings(failing)
		contextData["unhealthy_checks"] = failing
	}

	envelope = envelope.WithDetails(details)
	envelope, _ = envelope.WithContext(contextData)
	return envelope
}

var globalHealthManager *HealthManager

// InitHealthManager installs the manager behind the package-level handlers.
func InitHealthManager(version string) {
	globalHealthManager = NewHealthManager(version)
}

// GetHealthManager returns the installed manager, or nil.
func GetHealthManager() *HealthManager {
	return globalHealthManager
}

// withGlobal routes a probe to the installed manager.
func withGlobal(p probe, handle func(*HealthManager, http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if globalHealthManager != nil {
			handle(globalHealthManager, w, r)
			return
		}
		name := p.name
		if name == "" {
			name = "aggregate"
		}
		envelope := errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", "health manager not initialized")
		respondWithError(w, r, enrichHealthEnvelope(envelope, name, "unknown", nil))
	}
}

var (
	// HealthHandler serves /health from the installed manager.
	HealthHandler = withGlobal(probeAggregate, (*HealthManager).HealthHandler)
	// LivenessHandler serves /health/live from the installed manager.
	LivenessHandler = withGlobal(probeLive, (*HealthManager).LivenessHandler)
	// ReadinessHandler serves /health/ready from the installed manager.
	ReadinessHandler = withGlobal(probeReady, (*HealthManager).ReadinessHandler)
	// StartupHandler serves /health/startup from the installed manager.
	StartupHandler = withGlobal(probeStartup, (*HealthManager).StartupHandler)
)
