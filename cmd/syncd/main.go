package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"alarmsync/internal/api"
	"alarmsync/internal/backend"
	"alarmsync/internal/config"
	"alarmsync/internal/connectivity"
	"alarmsync/internal/database"
	"alarmsync/internal/events"
	"alarmsync/internal/liveness"
	"alarmsync/internal/logging"
	"alarmsync/internal/models"
	"alarmsync/internal/repository"
	"alarmsync/internal/service"
	syncpkg "alarmsync/internal/sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("failed to create database directory")
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open operation queue")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, deadLetter := initDeadLetter(ctx, cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	backendClient, err := initBackend(cfg, &logger)
	if err != nil {
		return err
	}

	checker := connectivity.NewHTTPChecker(cfg.Connectivity.ProbeURL, cfg.Connectivity.Timeout)
	connMonitor := connectivity.NewMonitor(checker, cfg.Connectivity.Interval, &logger)

	statusPub := events.NewPublisher[models.SyncStatus](models.SyncStatus.Equal)
	healthPub := events.NewPublisher[models.BackgroundHealth](models.BackgroundHealth.Equal)

	scheduler := liveness.NewHTTPScheduler(schedulerURL(cfg), cfg.Liveness.Timeout)
	livenessMonitor := liveness.NewMonitor(scheduler, cfg.Liveness.Interval, healthPub, &logger)

	coordinator := syncpkg.NewCoordinator(db, backendClient, connMonitor, deadLetter, statusPub, syncpkg.Options{
		Interval:        cfg.Sync.Interval,
		RetryCeiling:    cfg.Sync.RetryCeiling,
		DeliveryTimeout: cfg.Backend.Timeout,
	}, &logger)

	engine := service.NewEngine(db, coordinator, connMonitor, livenessMonitor, statusPub, healthPub, &logger)

	if cfg.API.Enabled {
		apiServer := api.NewHTTPServer(cfg.API, engine, &logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error().Err(err).Msg("API server error")
			}
		}()
		defer func() {
			_ = apiServer.Shutdown(context.Background())
		}()
	}

	logger.Info().Str("backend", cfg.Backend.BaseURL).Msg("sync engine started")
	engine.Run(ctx)
	logger.Info().Msg("Shutdown complete.")
	return nil
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}
	logger := baseLogger.With().Str("component", "syncd-main").Logger()

	return cfg, logger, closer, nil
}

func initDeadLetter(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, *repository.DeadLetter) {
	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = repository.NewRedisClient(cfg.Redis)
		if errPing := repository.Ping(ctx, redisClient); errPing != nil {
			logger.Warn().Err(errPing).Msg("Redis unavailable, dead-letter mirror degraded")
		}
	}
	return redisClient, repository.NewDeadLetter(redisClient, cfg.Redis.DeadLetterKey, logger)
}

func initBackend(cfg *config.Config, logger *zerolog.Logger) (*backend.HTTPClient, error) {
	routes := backend.Routes{}
	if cfg.Backend.RoutesFile != "" {
		loaded, err := backend.LoadRoutes(cfg.Backend.RoutesFile)
		if err != nil {
			logger.Error().Err(err).Str("path", cfg.Backend.RoutesFile).Msg("failed to load delivery routes")
			return nil, err
		}
		routes = loaded
	}

	return backend.NewHTTPClient(
		cfg.Backend.BaseURL,
		routes,
		cfg.Backend.Timeout,
		cfg.Backend.RateLimit.RPS,
		cfg.Backend.RateLimit.Burst,
		logger,
	), nil
}

func schedulerURL(cfg *config.Config) string {
	if cfg.Liveness.SchedulerURL != "" {
		return cfg.Liveness.SchedulerURL
	}
	return cfg.Backend.BaseURL
}
