package cmd

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/headhuntertrace/headhunter/internal/ailink"
	"github.com/headhuntertrace/headhunter/internal/config"
	"github.com/headhuntertrace/headhunter/internal/core/store"
	errwrap "github.com/headhuntertrace/headhunter/internal/errors"
	"github.com/headhuntertrace/headhunter/internal/events"
	"github.com/headhuntertrace/headhunter/internal/metrics"
	"github.com/headhuntertrace/headhunter/internal/observability"
	"github.com/headhuntertrace/headhunter/internal/server"
	"github.com/headhuntertrace/headhunter/internal/server/handlers"
)

const defaultShutdownTimeout = 10 * time.Second

var (
	serverPort int
	serverHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server hosting the dashboard API and the analysis function.

Endpoints:
  POST /functions/osint-search     analysis function
  /api/v1/users, /api/v1/me        profiles and credits
  /api/v1/searches[/{id}[/report|/events]]

Background searches still running at shutdown are awaited up to
server.shutdown_timeout.

Signals:
  SIGINT, SIGTERM   graceful shutdown (press Ctrl+C twice within 2s to force quit)
  SIGHUP            re-read the config file; store, analysis and credits need a restart`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		identity := GetAppIdentity()
		namespace := identity.TelemetryNamespace()

		observability.InitServerLogger(identity.BinaryName, viper.GetString("logging.level"), namespace)
		log := observability.ServerLogger

		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}

		metricsPort := cfg.Metrics.Port
		if metricsPort == 0 {
			metricsPort = 9090
		}
		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(identity.BinaryName, metricsPort, namespace); err != nil {
				log.Error("Metrics exporter failed to start", zap.Error(err))
				return errwrap.WrapInternal(ctx, err, "metrics initialization failed")
			}
		}

		log.Info("Starting headhunter server",
			zap.String("service", identity.BinaryName),
			zap.String("namespace", namespace),
			zap.String("version", versionInfo.Version),
			zap.String("addr", cfg.Server.Addr()),
			zap.Bool("metrics", cfg.Metrics.Enabled),
			zap.Int("metrics_port", metricsPort),
			zap.String("store_driver", cfg.Store.Driver),
			zap.String("analysis_mode", cfg.Analysis.Mode))

		st, err := openStore(ctx, cfg)
		if err != nil {
			return errwrap.WrapDatabaseError(ctx, err, "store initialization failed")
		}

		api, release, err := buildAPI(ctx, cfg, st)
		if err != nil {
			_ = st.Close()
			return err
		}

		registerHealthChecks(st, identity, cfg.Metrics.Enabled)
		handlers.SetAppIdentity(identity)
		handlers.SetServiceInfo(handlers.ServiceInfo{
			StoreDriver:  st.Driver(),
			AnalysisMode: cfg.Analysis.Mode,
			RedisEvents:  strings.TrimSpace(cfg.Events.RedisURL) != "",
		})
		metrics.SetServerStartTime(time.Now().Unix())

		if cfg.Debug.PprofEnabled {
			log.Warn("pprof handlers mounted under /debug")
		}
		srv := server.New(cfg.Server, api,
			server.WithHealth(cfg.Health.Enabled),
			server.WithPprof(cfg.Debug.PprofEnabled))
		registerShutdown(srv, cfg.Server.ShutdownTimeout, func() error {
			release()
			return st.Close()
		})
		signals.OnReload(reloadConfig)

		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			log.Warn("Double-tap force quit unavailable", zap.Error(err))
		}

		errc := make(chan error, 2)
		go func() {
			log.Info("HTTP server listening", zap.String("addr", cfg.Server.Addr()))
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
		}()
		go func() {
			if err := signals.Listen(ctx); err != nil {
				log.Error("Signal listener stopped", zap.Error(err))
				errc <- err
			}
		}()

		if err := <-errc; err != nil {
			return errwrap.WrapInternal(ctx, err, "server error")
		}
		return nil
	},
}

// buildAPI wires the handler dependencies. release stops the event fan-out
// and the Redis publisher.
func buildAPI(ctx context.Context, cfg *config.Config, st *store.Store) (*handlers.API, func(), error) {
	log := observability.ServerLogger

	var function handlers.FunctionService
	if svc, err := ailink.NewService(cfg.AILink); err != nil {
		log.Warn("Analysis function disabled", zap.Error(err))
	} else {
		function = svc
	}
	analyzer, err := buildAnalyzer(cfg, function, "")
	if err != nil {
		return nil, nil, errwrap.Wrap(ctx, errwrap.CodeConfigInvalid, err, "analysis backend unavailable")
	}

	bus := events.NewBus(log)
	publisher, closePublisher := buildPublisher(ctx, cfg, bus, log)
	release := func() {
		bus.Close()
		closePublisher()
	}

	return &handlers.API{
		Store:      st,
		Searches:   buildOrchestrator(st, analyzer, publisher, log),
		Function:   function,
		Bus:        bus,
		Renderer:   buildRenderer(cfg),
		Credits:    cfg.Credits,
		AdminToken: cfg.Server.AdminToken,
		RunTimeout: cfg.Analysis.Timeout,
		Logger:     log,
	}, release, nil
}

// registerHealthChecks feeds /health: the store ping, the metrics exporter
// when enabled and the identity the binary was started with.
func registerHealthChecks(st *store.Store, identity *appidentity.Identity, telemetry bool) {
	handlers.InitHealthManager(versionInfo.Version)
	hm := handlers.GetHealthManager()
	hm.RegisterChecker("store", handlers.CheckFunc(st.Ping))
	if telemetry {
		hm.RegisterChecker("telemetry", handlers.CheckFunc(func(context.Context) error {
			if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
				return errwrap.NewInternalError("telemetry system not initialized")
			}
			return nil
		}))
	}
	hm.RegisterChecker("app_identity", handlers.CheckFunc(func(context.Context) error {
		return checkIdentity(identity)
	}))
}

func checkIdentity(identity *appidentity.Identity) error {
	missing := ""
	switch {
	case identity == nil:
		missing = "identity"
	case identity.BinaryName == "":
		missing = "binary name"
	case identity.EnvPrefix == "":
		missing = "env prefix"
	case identity.ConfigName == "":
		missing = "config name"
	default:
		return nil
	}
	return errwrap.New(errwrap.CodeConfigInvalid, "app identity missing "+missing)
}

// registerShutdown installs the shutdown handlers. signals runs them last
// registered first: the HTTP server drains, then closeAll releases
// resources, then the logger is flushed.
func registerShutdown(srv *server.Server, timeout time.Duration, closeAll func() error) {
	log := observability.ServerLogger
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	signals.OnShutdown(func(context.Context) error {
		if err := log.Sync(); err != nil {
			// stdout may already be closed.
			log.Warn("Logger sync failed", zap.Error(err))
		}
		return nil
	})

	signals.OnShutdown(func(ctx context.Context) error {
		if err := observability.StopMetrics(); err != nil {
			log.Warn("Metrics exporter stop failed", zap.Error(err))
		}
		if err := closeAll(); err != nil {
			return errwrap.WrapDatabaseError(ctx, err, "store close failed")
		}
		return nil
	})

	signals.OnShutdown(func(ctx context.Context) error {
		log.Info("Draining HTTP server and running searches", zap.Duration("timeout", timeout))
		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errwrap.WrapInternal(ctx, err, "server shutdown failed")
		}
		log.Info("HTTP server stopped")
		return nil
	})
}

// reloadConfig re-reads the config file on SIGHUP.
func reloadConfig(ctx context.Context) error {
	log := observability.ServerLogger
	err := viper.ReadInConfig()
	switch {
	case err == nil:
		log.Info("Config file reloaded", zap.String("file", viper.ConfigFileUsed()))
		return nil
	case isConfigNotFound(err):
		log.Info("No config file to reload; defaults and environment apply")
		return nil
	default:
		log.Error("Config reload failed", zap.String("file", viper.ConfigFileUsed()), zap.Error(err))
		return errwrap.Wrap(ctx, errwrap.CodeConfigInvalid, err, "config reload failed")
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
