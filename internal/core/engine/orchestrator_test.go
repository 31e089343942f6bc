package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/headhuntertrace/headhunter/internal/core"
	"github.com/headhuntertrace/headhunter/internal/events"
)

type memoryStore struct {
	mu        sync.Mutex
	profiles  map[string]*core.UserProfile
	searches  map[string]*core.SearchRecord
	results   map[string][]core.ProfileResult
	calls     []string
	createErr error
	insertErr error
}

func newMemoryStore(userID string, credits int) *memoryStore {
	return &memoryStore{
		profiles: map[string]*core.UserProfile{userID: {ID: userID, Email: userID + "@example.com", Plan: core.PlanFree, CreditsRemaining: credits}},
		searches: map[string]*core.SearchRecord{},
		results:  map[string][]core.ProfileResult{},
	}
}

func (m *memoryStore) record(call string) {
	m.calls = append(m.calls, call)
}

func (m *memoryStore) DecrementCredits(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("decrement")
	p, ok := m.profiles[userID]
	if !ok {
		return 0, errors.New("user profile not found")
	}
	if p.CreditsRemaining <= 0 {
		return 0, core.ErrNoCredits
	}
	p.CreditsRemaining--
	return p.CreditsRemaining, nil
}

func (m *memoryStore) CreateSearch(_ context.Context, record *core.SearchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("create")
	if m.createErr != nil {
		return m.createErr
	}
	cp := *record
	m.searches[record.ID] = &cp
	return nil
}

func (m *memoryStore) CompleteSearch(_ context.Context, id string, count int, summary *core.SearchSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("complete")
	rec, ok := m.searches[id]
	if !ok || !core.CanTransition(rec.Status, core.SearchCompleted) {
		return fmt.Errorf("bad transition for %s", id)
	}
	rec.Status = core.SearchCompleted
	rec.ResultsCount = count
	rec.Summary = summary
	return nil
}

func (m *memoryStore) FailSearch(_ context.Context, id string, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("fail")
	rec, ok := m.searches[id]
	if !ok || !core.CanTransition(rec.Status, core.SearchFailed) {
		return fmt.Errorf("bad transition for %s", id)
	}
	rec.Status = core.SearchFailed
	rec.ErrorMessage = message
	return nil
}

func (m *memoryStore) InsertResults(_ context.Context, searchID, _ string, results []core.ProfileResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("insert")
	if m.insertErr != nil {
		return m.insertErr
	}
	m.results[searchID] = append(m.results[searchID], results...)
	return nil
}

func (m *memoryStore) GetProfile(_ context.Context, userID string) (*core.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, errors.New("user profile not found")
	}
	cp := *p
	return &cp, nil
}

type stubAnalyzer struct {
	data  *core.SearchData
	err   error
	calls []AnalysisRequest
}

func (s *stubAnalyzer) Analyze(_ context.Context, req AnalysisRequest) (*core.SearchData, error) {
	s.calls = append(s.calls, req)
	return s.data, s.err
}

type rateLimitErr struct{}

func (rateLimitErr) Error() string     { return "remote returned 429" }
func (rateLimitErr) RateLimited() bool { return true }

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) stages() []events.Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Stage, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Stage)
	}
	return out
}

func sampleData(n int) *core.SearchData {
	results := make([]core.ProfileResult, 0, n)
	for i := 0; i < n; i++ {
		results = append(results, core.ProfileResult{ResultType: core.ResultTypeSocialMedia, Platform: fmt.Sprintf("P%d", i), ConfidenceScore: 0.5})
	}
	return &core.SearchData{
		Results: results,
		Summary: &core.SearchSummary{TotalFound: n, ExposureLevel: core.ExposureMedium},
	}
}

func newOrchestrator(store *memoryStore, analyzer Analyzer, rec *recorder) *Orchestrator {
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return &Orchestrator{
		Store:    store,
		Analyzer: analyzer,
		Events:   rec,
		Clock:    func() time.Time { return fixed },
		NewID:    func() string { return "search-1" },
	}
}

func sessionFor(t *testing.T, store *memoryStore, userID string) *core.Session {
	t.Helper()
	profile, err := store.GetProfile(context.Background(), userID)
	require.NoError(t, err)
	return core.NewSession(profile)
}

func TestSubmitEmptyQueryHasNoSideEffects(t *testing.T) {
	store := newMemoryStore("u1", 3)
	analyzer := &stubAnalyzer{data: sampleData(1)}
	rec := &recorder{}
	o := newOrchestrator(store, analyzer, rec)

	_, err := o.Submit(context.Background(), sessionFor(t, store, "u1"), "   ")
	require.ErrorIs(t, err, ErrEmptyQuery)
	require.Empty(t, store.calls)
	require.Empty(t, analyzer.calls)
	require.Equal(t, 3, store.profiles["u1"].CreditsRemaining)
	require.Equal(t, []events.Stage{events.StageRejected}, rec.stages())
	require.Equal(t, "Enter a search query", UserMessage(err).Title)
}

func TestSubmitZeroCreditsHasNoSideEffects(t *testing.T) {
	store := newMemoryStore("u1", 0)
	analyzer := &stubAnalyzer{data: sampleData(1)}
	o := newOrchestrator(store, analyzer, &recorder{})

	_, err := o.Submit(context.Background(), sessionFor(t, store, "u1"), "Jane Doe")
	require.ErrorIs(t, err, ErrNoCredits)
	require.Empty(t, store.calls)
	require.Empty(t, analyzer.calls)
	require.Equal(t, "No credits remaining", UserMessage(err).Title)
}

func TestSubmitWithoutSession(t *testing.T) {
	store := newMemoryStore("u1", 3)
	o := newOrchestrator(store, &stubAnalyzer{}, &recorder{})

	_, err := o.Submit(context.Background(), nil, "Jane Doe")
	require.ErrorIs(t, err, ErrNoSession)
	require.Empty(t, store.calls)
}

func TestSubmitSuccess(t *testing.T) {
	store := newMemoryStore("u1", 1)
	analyzer := &stubAnalyzer{data: sampleData(3)}
	rec := &recorder{}
	o := newOrchestrator(store, analyzer, rec)
	session := sessionFor(t, store, "u1")

	outcome, err := o.Submit(context.Background(), session, "  Jane Doe ")
	require.NoError(t, err)

	require.Equal(t, []string{"decrement", "create", "complete", "insert"}, store.calls)
	require.Equal(t, 0, store.profiles["u1"].CreditsRemaining)
	require.Equal(t, 0, session.CreditsRemaining())

	require.Len(t, analyzer.calls, 1)
	require.Equal(t, AnalysisRequest{Query: "Jane Doe", SearchID: "search-1", UserID: "u1"}, analyzer.calls[0])

	stored := store.searches["search-1"]
	require.Equal(t, core.SearchCompleted, stored.Status)
	require.Equal(t, 3, stored.ResultsCount)
	require.Len(t, store.results["search-1"], 3)

	require.Equal(t, core.SearchCompleted, outcome.Record.Status)
	require.Equal(t, 3, outcome.Record.ResultsCount)
	require.Len(t, outcome.Data.Results, 3)

	require.Equal(t, []events.Stage{
		events.StageCreditDeducted,
		events.StageRecordCreated,
		events.StageInvoking,
		events.StageCompleted,
	}, rec.stages())
	require.Equal(t, 0, *rec.events[0].CreditsRemaining)
	require.Equal(t, 3, rec.events[3].ResultsCount)
}

func TestSubmitEmptyResultsCompletes(t *testing.T) {
	store := newMemoryStore("u1", 2)
	o := newOrchestrator(store, &stubAnalyzer{data: sampleData(0)}, &recorder{})

	outcome, err := o.Submit(context.Background(), sessionFor(t, store, "u1"), "nobody")
	require.NoError(t, err)
	require.Equal(t, core.SearchCompleted, outcome.Record.Status)
	require.Equal(t, 0, store.searches["search-1"].ResultsCount)
}

func TestSubmitRemoteFailureMarksFailed(t *testing.T) {
	cases := []struct {
		name      string
		analyzer  *stubAnalyzer
		wantErr   error
		wantDescr string
	}{
		{"generic", &stubAnalyzer{err: errors.New("connection reset")}, ErrAnalysisFailed, "An error occurred while searching."},
		{"rate limited", &stubAnalyzer{err: fmt.Errorf("call: %w", rateLimitErr{})}, ErrRateLimited, "Rate limit exceeded. Please try again later."},
		{"missing summary", &stubAnalyzer{data: &core.SearchData{Results: []core.ProfileResult{}}}, ErrAnalysisFailed, "An error occurred while searching."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemoryStore("u1", 1)
			rec := &recorder{}
			o := newOrchestrator(store, tc.analyzer, rec)

			outcome, err := o.Submit(context.Background(), sessionFor(t, store, "u1"), "Jane Doe")
			require.ErrorIs(t, err, tc.wantErr)
			require.NotNil(t, outcome)

			stored := store.searches["search-1"]
			require.Equal(t, core.SearchFailed, stored.Status)
			require.Equal(t, 0, stored.ResultsCount)
			require.Equal(t, tc.wantDescr, stored.ErrorMessage)
			require.Empty(t, store.results)
			require.NotContains(t, store.calls, "insert")
			require.Equal(t, tc.wantDescr, UserMessage(err).Description)

			stages := rec.stages()
			require.Equal(t, events.StageFailed, stages[len(stages)-1])
		})
	}
}

func TestSubmitDecrementFailureCreatesNoRecord(t *testing.T) {
	store := newMemoryStore("u1", 1)
	analyzer := &stubAnalyzer{data: sampleData(1)}
	o := newOrchestrator(store, analyzer, &recorder{})

	// Cached session claims a credit the store no longer has.
	session := sessionFor(t, store, "u1")
	store.profiles["u1"].CreditsRemaining = 0

	_, err := o.Submit(context.Background(), session, "Jane Doe")
	require.ErrorIs(t, err, ErrCreditDecrement)
	require.ErrorIs(t, err, core.ErrNoCredits)
	require.Equal(t, []string{"decrement"}, store.calls)
	require.Empty(t, store.searches)
	require.Empty(t, analyzer.calls)
	require.Equal(t, "No credits remaining", UserMessage(err).Title)
}

func TestSubmitRecordCreateFailureKeepsCreditSpent(t *testing.T) {
	store := newMemoryStore("u1", 2)
	store.createErr = errors.New("disk full")
	analyzer := &stubAnalyzer{data: sampleData(1)}
	o := newOrchestrator(store, analyzer, &recorder{})

	_, err := o.Submit(context.Background(), sessionFor(t, store, "u1"), "Jane Doe")
	require.ErrorIs(t, err, ErrRecordCreate)
	require.Equal(t, 1, store.profiles["u1"].CreditsRemaining)
	require.Empty(t, analyzer.calls)
	require.Equal(t, "Search failed", UserMessage(err).Title)
}

func TestSubmitInsertFailureAfterCompletion(t *testing.T) {
	store := newMemoryStore("u1", 1)
	store.insertErr = errors.New("constraint violation")
	o := newOrchestrator(store, &stubAnalyzer{data: sampleData(2)}, &recorder{})

	outcome, err := o.Submit(context.Background(), sessionFor(t, store, "u1"), "Jane Doe")
	require.ErrorIs(t, err, ErrResultsPersist)
	require.NotNil(t, outcome)
	require.Equal(t, core.SearchCompleted, store.searches["search-1"].Status)
	require.Len(t, outcome.Data.Results, 2)
}

func TestRunRejectsTerminalRecord(t *testing.T) {
	store := newMemoryStore("u1", 1)
	o := newOrchestrator(store, &stubAnalyzer{data: sampleData(1)}, &recorder{})

	_, err := o.Run(context.Background(), nil, &core.SearchRecord{ID: "x", Status: core.SearchCompleted})
	require.Error(t, err)
	require.Empty(t, store.calls)
}

func TestBeginThenRunSplitsLifecycle(t *testing.T) {
	store := newMemoryStore("u1", 1)
	analyzer := &stubAnalyzer{data: sampleData(1)}
	o := newOrchestrator(store, analyzer, &recorder{})
	session := sessionFor(t, store, "u1")

	record, err := o.Begin(context.Background(), session, "Jane Doe")
	require.NoError(t, err)
	require.Equal(t, core.SearchProcessing, store.searches[record.ID].Status)
	require.Empty(t, analyzer.calls)

	_, err = o.Run(context.Background(), session, record)
	require.NoError(t, err)
	require.Equal(t, core.SearchCompleted, store.searches[record.ID].Status)
}

func TestRefreshSession(t *testing.T) {
	store := newMemoryStore("u1", 5)
	o := newOrchestrator(store, &stubAnalyzer{}, &recorder{})

	session := &core.Session{User: core.User{ID: "u1"}}
	require.NoError(t, o.RefreshSession(context.Background(), session))
	require.Equal(t, 5, session.CreditsRemaining())
	require.Equal(t, "u1@example.com", session.User.Email)

	require.ErrorIs(t, o.RefreshSession(context.Background(), &core.Session{}), ErrNoSession)
}

func TestUserMessageDefaults(t *testing.T) {
	require.Equal(t, Message{}, UserMessage(nil))
	require.Equal(t, "Search failed", UserMessage(errors.New("x")).Title)
}
