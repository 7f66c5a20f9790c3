// Package main is the entry point for the sentiment analysis dashboard server.
// It serves the login, report, prediction and access management screens.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/auth"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/cache/memory"
	rediscache "github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/cache/redis"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/classifier"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/config"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/handler"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/lock"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/logging"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/metrics"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/repository"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/repository/factory"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/service"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/storage"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", os.Getenv("SENTIMEN_CONFIG"), "path to the configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	log.Logger = logger

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("Starting sentiment dashboard")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// User store
	store, err := factory.OpenStore(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("open user store: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Warn().Err(err).Msg("failed to close user store")
		}
	}()

	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	// Shared state: Redis when enabled, in-process otherwise
	shared, err := newSharedState(ctx, cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer shared.close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	// Artifacts
	artifacts := storage.NewRouter(cfg.S3, logger)

	var model classifier.Classifier
	nb, err := service.LoadClassifier(ctx, artifacts, cfg.Model)
	if err != nil {
		logger.Error().Err(err).Str("location", cfg.Model.Location).Msg("model unavailable; predictions are disabled")
	} else {
		model = nb
	}

	// Services
	directory := service.NewDirectoryService(store.Users(), shared.notifier, cfg.Directory.Channel, m, logger)
	users := service.NewUserService(service.UserServiceConfig{
		UserRepo:  store.Users(),
		Hasher:    auth.NewBcryptHasher(0),
		Locker:    shared.locker,
		Directory: directory,
		Metrics:   m,
	}, logger)
	sessions := service.NewSessionService(shared.cache, users, store.Users(), cfg.Session.TTL, logger)
	predictions := service.NewPredictionService(model, m, logger)
	reports := service.NewReportService(service.NewDatasetLoader(artifacts, cfg.Report.Dataset), cfg.Report, logger)

	go func() {
		if err := directory.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("directory invalidation listener stopped")
		}
	}()

	// HTTP
	dashboard, err := handler.NewDashboardHandler(handler.DashboardConfig{
		SessionService:    sessions,
		UserService:       users,
		DirectoryService:  directory,
		PredictionService: predictions,
		ReportService:     reports,
		Cookie: handler.CookieConfig{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Session.SecureCookie,
			TTL:    cfg.Session.TTL,
		},
		MaxUploadSize: cfg.Server.MaxUploadSize,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("build dashboard: %w", err)
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr(),
		Handler: handler.NewRouter(handler.RouterConfig{
			Dashboard:  dashboard,
			Sessions:   sessions,
			CookieName: cfg.Session.CookieName,
			Store:      store,
			Metrics:    m,
			Logger:     logger,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	var metricsSrv *http.Server
	if m != nil {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, m.Handler())
		metricsSrv = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info().Str("addr", metricsSrv.Addr).Str("path", cfg.Metrics.Path).Msg("metrics server listening")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("dashboard listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("metrics server shutdown")
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info().Msg("Server stopped")
	return nil
}

// sharedState holds the session cache, directory notifier and user locker.
type sharedState struct {
	cache    repository.Cache
	notifier repository.Notifier
	locker   lock.Locker
	close    func()
}

func newSharedState(ctx context.Context, cfg config.RedisConfig, logger zerolog.Logger) (*sharedState, error) {
	if cfg.Enabled {
		client, err := rediscache.NewClient(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return &sharedState{
			cache:    rediscache.NewCache(client),
			notifier: rediscache.NewNotifier(client, logger),
			locker:   lock.NewRedisLocker(client),
			close:    closeRedis(client, logger),
		}, nil
	}

	logger.Warn().Msg("redis disabled; sessions and locks are local to this process")

	c := memory.NewCache()
	l := lock.NewMemoryLocker()
	return &sharedState{
		cache:    c,
		notifier: memory.NewNotifier(),
		locker:   l,
		close: func() {
			c.Stop()
			l.Stop()
		},
	}, nil
}

func closeRedis(client *goredis.Client, logger zerolog.Logger) func() {
	return func() {
		if err := client.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close redis client")
		}
	}
}
