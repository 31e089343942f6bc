// Package engine runs the search lifecycle: guard, credit decrement, record
// creation, remote analysis, and the terminal status update.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/headhuntertrace/headhunter/internal/core"
	"github.com/headhuntertrace/headhunter/internal/events"
	"github.com/headhuntertrace/headhunter/internal/metrics"
)

var (
	// ErrEmptyQuery rejects a blank query before any side effect.
	ErrEmptyQuery = errors.New("search query is empty")
	// ErrNoCredits rejects a submission from a session with no cached credits.
	ErrNoCredits = errors.New("no credits remaining")
	// ErrNoSession rejects a submission without a signed-in user.
	ErrNoSession = errors.New("session has no user")
	// ErrCreditDecrement wraps a failed atomic decrement. No record exists.
	ErrCreditDecrement = errors.New("credit decrement failed")
	// ErrRecordCreate wraps a failed record insert. The credit stays spent.
	ErrRecordCreate = errors.New("search record creation failed")
	// ErrRateLimited marks an analysis call refused for rate limiting.
	ErrRateLimited = errors.New("analysis rate limited")
	// ErrAnalysisFailed marks any other analysis failure.
	ErrAnalysisFailed = errors.New("analysis failed")
	// ErrResultsPersist wraps a failed result insert after the record completed.
	ErrResultsPersist = errors.New("persisting search results failed")
)

// SearchStore is the persistence backend the orchestrator drives.
type SearchStore interface {
	DecrementCredits(ctx context.Context, userID string) (int, error)
	CreateSearch(ctx context.Context, record *core.SearchRecord) error
	CompleteSearch(ctx context.Context, id string, resultsCount int, summary *core.SearchSummary) error
	FailSearch(ctx context.Context, id string, message string) error
	InsertResults(ctx context.Context, searchID, userID string, results []core.ProfileResult) error
	GetProfile(ctx context.Context, userID string) (*core.UserProfile, error)
}

// AnalysisRequest is what the orchestrator sends to the analysis function.
type AnalysisRequest struct {
	Query    string `json:"query"`
	SearchID string `json:"searchId"`
	UserID   string `json:"userId"`
}

// Analyzer runs the external analysis for one search.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalysisRequest) (*core.SearchData, error)
}

// Outcome is the result of a finished search.
type Outcome struct {
	Record *core.SearchRecord
	Data   *core.SearchData
}

// Orchestrator coordinates one search at a time per record. Steps run strictly
// in order: decrement, create, analyze, terminal update.
type Orchestrator struct {
	Store    SearchStore
	Analyzer Analyzer
	Events   events.Publisher
	Clock    func() time.Time
	NewID    func() string
	Logger   *logging.Logger
}

// Submit runs the whole lifecycle for query.
func (o *Orchestrator) Submit(ctx context.Context, session *core.Session, query string) (*Outcome, error) {
	record, err := o.Begin(ctx, session, query)
	if err != nil {
		return nil, err
	}
	return o.Run(ctx, session, record)
}

// Begin checks the guards, spends one credit and creates the processing
// record. Guard failures touch neither the store nor the network.
func (o *Orchestrator) Begin(ctx context.Context, session *core.Session, query string) (*core.SearchRecord, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if o == nil || o.Store == nil {
		return nil, fmt.Errorf("orchestrator not configured")
	}

	query = strings.TrimSpace(query)
	if err := guard(session, query); err != nil {
		o.publish(ctx, events.Event{UserID: sessionUserID(session), Query: query, Stage: events.StageRejected, Error: err.Error()})
		return nil, err
	}
	userID := session.User.ID

	remaining, err := o.Store.DecrementCredits(ctx, userID)
	if err != nil {
		if errors.Is(err, core.ErrNoCredits) {
			metrics.RecordCreditDecrement("no_credits")
		} else {
			metrics.RecordCreditDecrement("error")
		}
		o.logWarn("Credit decrement failed", zap.String("user_id", userID), zap.Error(err))
		o.publish(ctx, events.Event{UserID: userID, Query: query, Stage: events.StageRejected, Error: err.Error()})
		return nil, fmt.Errorf("%w: %w", ErrCreditDecrement, err)
	}
	metrics.RecordCreditDecrement("ok")
	if session.Profile != nil {
		session.Profile.CreditsRemaining = remaining
	}
	o.publish(ctx, events.Event{UserID: userID, Query: query, Stage: events.StageCreditDeducted, CreditsRemaining: &remaining})

	record := &core.SearchRecord{
		ID:        o.newID(),
		UserID:    userID,
		Query:     query,
		QueryType: core.QueryTypeName,
		Status:    core.SearchProcessing,
		CreatedAt: o.now(),
	}
	if err := o.Store.CreateSearch(ctx, record); err != nil {
		o.logWarn("Search record creation failed after credit was spent",
			zap.String("user_id", userID), zap.Int("credits_remaining", remaining), zap.Error(err))
		o.publish(ctx, events.Event{UserID: userID, Query: query, Stage: events.StageFailed, Error: err.Error()})
		return nil, fmt.Errorf("%w: %w", ErrRecordCreate, err)
	}

	o.logDebug("Search record created", zap.String("search_id", record.ID), zap.String("user_id", userID))
	o.publish(ctx, events.Event{SearchID: record.ID, UserID: userID, Query: query, Stage: events.StageRecordCreated, Status: record.Status})
	return record, nil
}

// Run invokes the analysis for a processing record and applies the terminal
// status. On failure the record becomes failed and no results are stored.
func (o *Orchestrator) Run(ctx context.Context, session *core.Session, record *core.SearchRecord) (*Outcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if o == nil || o.Store == nil {
		return nil, fmt.Errorf("orchestrator not configured")
	}
	if record == nil {
		return nil, fmt.Errorf("search record is required")
	}
	if record.Status != core.SearchProcessing {
		return nil, fmt.Errorf("search %s is %s", record.ID, record.Status)
	}

	userID := record.UserID
	if userID == "" {
		userID = sessionUserID(session)
	}
	base := events.Event{SearchID: record.ID, UserID: userID, Query: record.Query}

	invoking := base
	invoking.Stage = events.StageInvoking
	invoking.Status = core.SearchProcessing
	o.publish(ctx, invoking)

	data, err := o.analyze(ctx, AnalysisRequest{Query: record.Query, SearchID: record.ID, UserID: userID})
	if err != nil {
		return o.fail(ctx, record, base, err)
	}

	count := len(data.Results)
	if err := o.Store.CompleteSearch(ctx, record.ID, count, data.Summary); err != nil {
		return o.fail(ctx, record, base, fmt.Errorf("%w: %w", ErrAnalysisFailed, err))
	}
	record.Status = core.SearchCompleted
	record.ResultsCount = count
	record.Summary = data.Summary
	record.UpdatedAt = o.now()
	metrics.RecordSearch(string(core.SearchCompleted), record.UpdatedAt.Sub(record.CreatedAt))

	outcome := &Outcome{Record: record, Data: data}

	if err := o.Store.InsertResults(ctx, record.ID, userID, data.Results); err != nil {
		o.logWarn("Search completed but results were not stored",
			zap.String("search_id", record.ID), zap.Int("results", count), zap.Error(err))
		done := base
		done.Stage = events.StageCompleted
		done.Status = core.SearchCompleted
		done.ResultsCount = count
		done.Error = err.Error()
		o.publish(ctx, done)
		return outcome, fmt.Errorf("%w: %w", ErrResultsPersist, err)
	}

	o.logInfo("Search completed", zap.String("search_id", record.ID), zap.Int("results", count))
	done := base
	done.Stage = events.StageCompleted
	done.Status = core.SearchCompleted
	done.ResultsCount = count
	o.publish(ctx, done)
	return outcome, nil
}

// RefreshSession reloads the session profile from the store.
func (o *Orchestrator) RefreshSession(ctx context.Context, session *core.Session) error {
	if o == nil || o.Store == nil {
		return fmt.Errorf("orchestrator not configured")
	}
	if session == nil || strings.TrimSpace(session.User.ID) == "" {
		return ErrNoSession
	}
	profile, err := o.Store.GetProfile(ctx, session.User.ID)
	if err != nil {
		return err
	}
	session.Profile = profile
	if session.User.Email == "" {
		session.User.Email = profile.Email
	}
	return nil
}

func (o *Orchestrator) analyze(ctx context.Context, req AnalysisRequest) (*core.SearchData, error) {
	if o.Analyzer == nil {
		metrics.RecordAnalysisCall("failure")
		return nil, fmt.Errorf("%w: analyzer not configured", ErrAnalysisFailed)
	}

	data, err := o.Analyzer.Analyze(ctx, req)
	if err != nil {
		if isRateLimited(err) {
			metrics.RecordAnalysisCall("rate_limited")
			return nil, fmt.Errorf("%w: %w", ErrRateLimited, err)
		}
		metrics.RecordAnalysisCall("failure")
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}
	if err := data.Validate(); err != nil {
		metrics.RecordAnalysisCall("failure")
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}
	metrics.RecordAnalysisCall("success")
	return data, nil
}

func (o *Orchestrator) fail(ctx context.Context, record *core.SearchRecord, base events.Event, cause error) (*Outcome, error) {
	message := UserMessage(cause).Description
	if err := o.Store.FailSearch(ctx, record.ID, message); err != nil {
		o.logWarn("Could not mark search failed", zap.String("search_id", record.ID), zap.Error(err))
		cause = errors.Join(cause, err)
	} else {
		record.Status = core.SearchFailed
		record.ErrorMessage = message
		record.UpdatedAt = o.now()
	}
	metrics.RecordSearch(string(core.SearchFailed), o.now().Sub(record.CreatedAt))

	o.logWarn("Search failed", zap.String("search_id", record.ID), zap.Error(cause))
	failed := base
	failed.Stage = events.StageFailed
	failed.Status = core.SearchFailed
	failed.Error = message
	o.publish(ctx, failed)
	return &Outcome{Record: record}, cause
}

func guard(session *core.Session, query string) error {
	if query == "" {
		return ErrEmptyQuery
	}
	if session == nil || strings.TrimSpace(session.User.ID) == "" {
		return ErrNoSession
	}
	if session.CreditsRemaining() <= 0 {
		return ErrNoCredits
	}
	return nil
}

// isRateLimited detects upstream throttling from any analyzer error that
// exposes RateLimited.
func isRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var rl interface{ RateLimited() bool }
	return errors.As(err, &rl) && rl.RateLimited()
}

func sessionUserID(session *core.Session) string {
	if session == nil {
		return ""
	}
	return session.User.ID
}

func (o *Orchestrator) publish(ctx context.Context, event events.Event) {
	if o.Events == nil {
		return
	}
	if event.At.IsZero() {
		event.At = o.now()
	}
	o.Events.Publish(ctx, event)
}

func (o *Orchestrator) now() time.Time {
	if o.Clock != nil {
		return o.Clock()
	}
	return time.Now().UTC()
}

func (o *Orchestrator) newID() string {
	if o.NewID != nil {
		return o.NewID()
	}
	return uuid.NewString()
}

func (o *Orchestrator) logDebug(msg string, fields ...zap.Field) {
	if o.Logger != nil {
		o.Logger.Debug(msg, fields...)
	}
}

func (o *Orchestrator) logInfo(msg string, fields ...zap.Field) {
	if o.Logger != nil {
		o.Logger.Info(msg, fields...)
	}
}

func (o *Orchestrator) logWarn(msg string, fields ...zap.Field) {
	if o.Logger != nil {
		o.Logger.Warn(msg, fields...)
	}
}
