package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/headhuntertrace/headhunter/internal/ailink"
	"github.com/headhuntertrace/headhunter/internal/analysis"
	"github.com/headhuntertrace/headhunter/internal/config"
	"github.com/headhuntertrace/headhunter/internal/core"
	"github.com/headhuntertrace/headhunter/internal/core/engine"
	"github.com/headhuntertrace/headhunter/internal/core/store"
	"github.com/headhuntertrace/headhunter/internal/events"
	"github.com/headhuntertrace/headhunter/internal/report"
)

func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// profileLookup is the slice of the store used to resolve a --user flag.
type profileLookup interface {
	GetProfile(ctx context.Context, userID string) (*core.UserProfile, error)
	GetProfileByEmail(ctx context.Context, email string) (*core.UserProfile, error)
}

// resolveSession loads the profile named by user, which may be an id or an email.
func resolveSession(ctx context.Context, st profileLookup, user string) (*core.Session, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return nil, fmt.Errorf("--user is required")
	}

	var (
		profile *core.UserProfile
		err     error
	)
	if strings.Contains(user, "@") {
		profile, err = st.GetProfileByEmail(ctx, user)
	} else {
		profile, err = st.GetProfile(ctx, user)
	}
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", user, err)
	}
	return core.NewSession(profile), nil
}

// buildAnalyzer returns the analysis backend selected by analysis.mode. In
// local mode svc is used when set, otherwise a service is built from the
// ailink config.
func buildAnalyzer(cfg *config.Config, svc analysis.Service, model string) (engine.Analyzer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Analysis.Mode)) {
	case "remote":
		client := analysis.NewClient(cfg.Analysis.URL, cfg.Analysis.APIKey)
		client.Timeout = cfg.Analysis.Timeout
		return client, nil
	default:
		if svc == nil {
			local, err := ailink.NewService(cfg.AILink)
			if err != nil {
				return nil, fmt.Errorf("build analysis service: %w", err)
			}
			svc = local
		}
		return &analysis.Local{Service: svc, Model: strings.TrimSpace(model)}, nil
	}
}

// buildPublisher fans status events out to bus (when set) and to Redis when
// events.redis_url is configured. An unreachable Redis is logged and skipped.
// The returned cleanup closes the Redis client.
func buildPublisher(ctx context.Context, cfg *config.Config, bus *events.Bus, logger *logging.Logger) (events.Publisher, func()) {
	var (
		publishers events.Multi
		client     *redis.Client
	)
	if bus != nil {
		publishers = append(publishers, bus)
	}

	if url := strings.TrimSpace(cfg.Events.RedisURL); url != "" {
		var err error
		client, err = events.NewRedisClient(ctx, url)
		if err != nil {
			if logger != nil {
				logger.Warn("Redis unavailable, status events stay in-process", zap.Error(err))
			}
		} else {
			publishers = append(publishers, events.NewRedisPublisher(client, cfg.Events.Channel, logger))
		}
	}

	cleanup := func() {
		if client != nil {
			_ = client.Close()
		}
	}
	if len(publishers) == 0 {
		return events.Nop{}, cleanup
	}
	return publishers, cleanup
}

func buildOrchestrator(st engine.SearchStore, analyzer engine.Analyzer, publisher events.Publisher, logger *logging.Logger) *engine.Orchestrator {
	return &engine.Orchestrator{
		Store:    st,
		Analyzer: analyzer,
		Events:   publisher,
		Logger:   logger,
	}
}

func buildRenderer(cfg *config.Config) *report.Renderer {
	renderer := report.New()
	renderer.Compress = cfg.Report.Compress
	return renderer
}
