package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct {
	err error
}

func (s stubChecker) CheckHealth(ctx context.Context) error {
	return s.err
}

type healthErrorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func TestHealthHandlerReturnsHealthyStatus(t *testing.T) {
	manager := NewHealthManager("1.2.3")
	manager.RegisterChecker("store", stubChecker{})

	rec := httptest.NewRecorder()
	manager.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Equal(t, "healthy", resp.Checks["store"])
}

func TestHealthHandlerReturnsServiceUnavailableWhenUnhealthy(t *testing.T) {
	manager := NewHealthManager("1.2.3")
	manager.RegisterChecker("store", stubChecker{err: errors.New("down")})
	manager.RegisterChecker("telemetry", stubChecker{})

	rec := httptest.NewRecorder()
	manager.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp healthErrorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "SERVICE_UNAVAILABLE", resp.Error.Code)

	checks, ok := resp.Error.Details["checks"].(map[string]any)
	require.True(t, ok, "expected checks in error details")
	assert.Equal(t, "unhealthy", checks["store"])
	assert.Equal(t, "healthy", checks["telemetry"])
}

func TestDetermineOverallStatus(t *testing.T) {
	manager := NewHealthManager("dev")

	assert.Equal(t, "healthy", manager.determineOverallStatus(nil))
	assert.Equal(t, "degraded", manager.determineOverallStatus(map[string]string{"store": "timeout"}))
	assert.Equal(t, "unhealthy", manager.determineOverallStatus(map[string]string{
		"store":     "timeout",
		"telemetry": "unhealthy",
	}))
}

func TestRunHealthChecksMarksExpiredContextAsTimeout(t *testing.T) {
	manager := NewHealthManager("dev")
	called := false
	manager.RegisterChecker("store", CheckFunc(func(context.Context) error {
		called = true
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	checks := manager.runHealthChecks(ctx)
	assert.Equal(t, map[string]string{"store": "timeout"}, checks)
	assert.False(t, called)
}

func TestReadinessFailsWhenStorePingFails(t *testing.T) {
	manager := NewHealthManager("1.0.0")
	manager.RegisterChecker("store", CheckFunc(func(context.Context) error {
		return errors.New("database is locked")
	}))

	rec := httptest.NewRecorder()
	manager.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp healthErrorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ready", resp.Error.Details["probe"])
}

func TestGlobalProbesRequireManager(t *testing.T) {
	previous := globalHealthManager
	t.Cleanup(func() { globalHealthManager = previous })

	globalHealthManager = nil
	rec := httptest.NewRecorder()
	LivenessHandler(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	InitHealthManager("2.0.0")
	rec = httptest.NewRecorder()
	LivenessHandler(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProbeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
}
