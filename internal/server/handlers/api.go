package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	gferrors "github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/headhuntertrace/headhunter/internal/ailink"
	"github.com/headhuntertrace/headhunter/internal/config"
	"github.com/headhuntertrace/headhunter/internal/core"
	"github.com/headhuntertrace/headhunter/internal/core/engine"
	"github.com/headhuntertrace/headhunter/internal/core/store"
	apperrors "github.com/headhuntertrace/headhunter/internal/errors"
	"github.com/headhuntertrace/headhunter/internal/events"
	"github.com/headhuntertrace/headhunter/internal/report"
)

// UserIDHeader carries the caller identity on dashboard requests.
const UserIDHeader = "X-User-ID"

const defaultRunTimeout = 2 * time.Minute

// AccountStore is the persistence the dashboard reads from directly.
type AccountStore interface {
	CreateProfile(ctx context.Context, profile *core.UserProfile) error
	GetProfile(ctx context.Context, userID string) (*core.UserProfile, error)
	GrantCredits(ctx context.Context, userID string, amount int) (int, error)
	GetSearch(ctx context.Context, id string) (*core.SearchRecord, error)
	ListSearches(ctx context.Context, userID string, limit int) ([]core.SearchRecord, error)
	ListResults(ctx context.Context, searchID string) ([]core.StoredResult, error)
}

// SearchRunner drives the search lifecycle.
type SearchRunner interface {
	Begin(ctx context.Context, session *core.Session, query string) (*core.SearchRecord, error)
	Run(ctx context.Context, session *core.Session, record *core.SearchRecord) (*engine.Outcome, error)
}

// FunctionService answers the analysis function endpoint.
type FunctionService interface {
	Analyze(ctx context.Context, req ailink.AnalysisRequest) (*core.SearchData, error)
}

// API holds the dependencies of the dashboard and function endpoints.
type API struct {
	Store    AccountStore
	Searches SearchRunner
	Function FunctionService
	Bus      *events.Bus
	Renderer *report.Renderer
	Credits  config.CreditsConfig

	// AdminToken gates credit grants. Empty disables the grant endpoint.
	AdminToken string
	// RunTimeout bounds the background analysis step of a submitted search.
	RunTimeout time.Duration

	NewID  func() string
	Logger *logging.Logger

	runs sync.WaitGroup
}

// Wait blocks until every background search run has returned.
func (a *API) Wait() {
	a.runs.Wait()
}

func (a *API) newID() string {
	if a.NewID != nil {
		return a.NewID()
	}
	return uuid.NewString()
}

func (a *API) runTimeout() time.Duration {
	if a.RunTimeout > 0 {
		return a.RunTimeout
	}
	return defaultRunTimeout
}

// session loads the caller's profile from the identity header.
func (a *API) session(r *http.Request) (*core.Session, *gferrors.ErrorEnvelope) {
	userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
	if userID == "" {
		return nil, apperrors.NewUnauthorizedError("missing " + UserIDHeader + " header")
	}
	profile, err := a.Store.GetProfile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, apperrors.NewUnauthorizedError("unknown user")
		}
		return nil, apperrors.WrapDatabaseError(r.Context(), err, "failed to load profile")
	}
	return core.NewSession(profile), nil
}

// searchEnvelope maps an orchestrator error to an HTTP envelope carrying the
// user-facing description.
func searchEnvelope(ctx context.Context, err error) *gferrors.ErrorEnvelope {
	msg := engine.UserMessage(err)
	switch {
	case errors.Is(err, engine.ErrEmptyQuery):
		return apperrors.WrapInvalidInput(ctx, err, msg.Description)
	case errors.Is(err, engine.ErrNoSession):
		return apperrors.Wrap(ctx, apperrors.CodeUnauthorized, err, msg.Description)
	case errors.Is(err, engine.ErrNoCredits), errors.Is(err, core.ErrNoCredits):
		return apperrors.Wrap(ctx, apperrors.CodeInsufficientCredits, err, msg.Description)
	case errors.Is(err, engine.ErrCreditDecrement), errors.Is(err, engine.ErrRecordCreate):
		return apperrors.WrapDatabaseError(ctx, err, msg.Description)
	case errors.Is(err, engine.ErrRateLimited):
		return apperrors.Wrap(ctx, apperrors.CodeRateLimited, err, msg.Description)
	default:
		return apperrors.WrapInternal(ctx, err, msg.Description)
	}
}

// respondWithError writes err as the standard JSON error body.
func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.RespondWithError(w, r, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20)).Decode(v)
}

func (a *API) logWarn(msg string, fields ...zap.Field) {
	if a.Logger != nil {
		a.Logger.Warn(msg, fields...)
	}
}
