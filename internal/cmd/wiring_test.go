package cmd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/headhuntertrace/headhunter/internal/ailink"
	"github.com/headhuntertrace/headhunter/internal/analysis"
	"github.com/headhuntertrace/headhunter/internal/config"
	"github.com/headhuntertrace/headhunter/internal/core"
	"github.com/headhuntertrace/headhunter/internal/core/store"
	"github.com/headhuntertrace/headhunter/internal/events"
)

type fakeProfiles struct {
	byID    map[string]*core.UserProfile
	byEmail map[string]*core.UserProfile
}

func (f fakeProfiles) GetProfile(_ context.Context, id string) (*core.UserProfile, error) {
	if p, ok := f.byID[id]; ok {
		return p, nil
	}
	return nil, store.ErrUserNotFound
}

func (f fakeProfiles) GetProfileByEmail(_ context.Context, email string) (*core.UserProfile, error) {
	if p, ok := f.byEmail[email]; ok {
		return p, nil
	}
	return nil, store.ErrUserNotFound
}

type stubService struct{}

func (stubService) Analyze(context.Context, ailink.AnalysisRequest) (*core.SearchData, error) {
	return &core.SearchData{Results: []core.ProfileResult{}, Summary: &core.SearchSummary{}}, nil
}

func TestResolveSession(t *testing.T) {
	profile := &core.UserProfile{ID: "u-1", Email: "jane@example.com", Plan: core.PlanFree, CreditsRemaining: 3}
	lookup := fakeProfiles{
		byID:    map[string]*core.UserProfile{"u-1": profile},
		byEmail: map[string]*core.UserProfile{"jane@example.com": profile},
	}
	ctx := context.Background()

	t.Run("by id", func(t *testing.T) {
		session, err := resolveSession(ctx, lookup, " u-1 ")
		require.NoError(t, err)
		assert.Equal(t, "u-1", session.User.ID)
		assert.Equal(t, 3, session.CreditsRemaining())
	})

	t.Run("by email", func(t *testing.T) {
		session, err := resolveSession(ctx, lookup, "jane@example.com")
		require.NoError(t, err)
		assert.Equal(t, "jane@example.com", session.User.Email)
	})

	t.Run("missing flag", func(t *testing.T) {
		_, err := resolveSession(ctx, lookup, "  ")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--user")
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := resolveSession(ctx, lookup, "nobody")
		require.Error(t, err)
		assert.True(t, errors.Is(err, store.ErrUserNotFound))
	})
}

func TestBuildAnalyzer(t *testing.T) {
	t.Run("remote mode uses the function client", func(t *testing.T) {
		cfg := &config.Config{Analysis: config.AnalysisConfig{
			Mode:    "remote",
			URL:     "https://functions.example.com/osint-search",
			APIKey:  "secret",
			Timeout: 45 * time.Second,
		}}
		analyzer, err := buildAnalyzer(cfg, nil, "")
		require.NoError(t, err)

		client, ok := analyzer.(*analysis.Client)
		require.True(t, ok, "expected *analysis.Client, got %T", analyzer)
		assert.Equal(t, "https://functions.example.com/osint-search", client.URL)
		assert.Equal(t, "secret", client.APIKey)
		assert.Equal(t, 45*time.Second, client.Timeout)
	})

	t.Run("local mode reuses the given service", func(t *testing.T) {
		cfg := &config.Config{Analysis: config.AnalysisConfig{Mode: "local"}}
		analyzer, err := buildAnalyzer(cfg, stubService{}, " gemini-2.5-pro ")
		require.NoError(t, err)

		local, ok := analyzer.(*analysis.Local)
		require.True(t, ok, "expected *analysis.Local, got %T", analyzer)
		assert.Equal(t, stubService{}, local.Service)
		assert.Equal(t, "gemini-2.5-pro", local.Model)
	})

	t.Run("local mode builds the embedded service", func(t *testing.T) {
		analyzer, err := buildAnalyzer(&config.Config{}, nil, "")
		require.NoError(t, err)

		local, ok := analyzer.(*analysis.Local)
		require.True(t, ok)
		svc, ok := local.Service.(*ailink.Service)
		require.True(t, ok)
		_, err = svc.Prompts.Get(ailink.SearchPromptSlug)
		assert.NoError(t, err)
	})
}

func TestBuildPublisher(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing configured", func(t *testing.T) {
		pub, cleanup := buildPublisher(ctx, &config.Config{}, nil, nil)
		defer cleanup()
		assert.IsType(t, events.Nop{}, pub)
	})

	t.Run("bus only", func(t *testing.T) {
		bus := events.NewBus(nil)
		defer bus.Close()

		pub, cleanup := buildPublisher(ctx, &config.Config{}, bus, nil)
		defer cleanup()

		multi, ok := pub.(events.Multi)
		require.True(t, ok)
		assert.Len(t, multi, 1)
	})

	t.Run("unusable redis url falls back to the bus", func(t *testing.T) {
		bus := events.NewBus(nil)
		defer bus.Close()

		cfg := &config.Config{Events: config.EventsConfig{RedisURL: "not-a-redis-url"}}
		pub, cleanup := buildPublisher(ctx, cfg, bus, nil)
		defer cleanup()

		multi, ok := pub.(events.Multi)
		require.True(t, ok)
		assert.Len(t, multi, 1)
	})
}

func TestBuildRendererHonorsCompression(t *testing.T) {
	renderer := buildRenderer(&config.Config{Report: config.ReportConfig{Compress: false}})
	assert.False(t, renderer.Compress)
	assert.NotEmpty(t, renderer.Product)
}
