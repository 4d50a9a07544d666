package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fitstudio/internal/api"
	"fitstudio/internal/config"
	"fitstudio/internal/database"
	"fitstudio/internal/domain"
	"fitstudio/internal/events"
	"fitstudio/internal/google"
	"fitstudio/internal/logging"
	"fitstudio/internal/metrics"
	"fitstudio/internal/repository"
	"fitstudio/internal/service"
	"fitstudio/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
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
		defer closer.Close()
	}

	db, err := initDatabase(cfg, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	cache := buildClassCache(cfg, redisClient, &logger)
	eventBus := events.NewEventBus()
	registerEventConsumers(eventBus, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncWorker := initSyncWorker(ctx, cfg, db, redisClient, &logger)

	bookingService := service.NewBookingService(db, cache, eventBus, syncWorker, &logger)
	queryService, err := service.NewQueryService(db, db, cache, cfg.Studio.Timezone, &logger)
	if err != nil {
		return err
	}

	httpServer := api.NewHTTPServer(cfg, bookingService, queryService, db, &logger)

	startMetrics(ctx, cfg, &logger)
	startBackup(ctx, cfg, &logger)

	return startServer(ctx, httpServer, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func initDatabase(cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}

	if cfg.Seed.ClassesFile != "" {
		if err := db.SeedClasses(context.Background(), cfg.Seed.ClassesFile); err != nil {
			// A broken seed file must not keep the service down.
			logger.Error().Err(err).Str("seed_path", cfg.Seed.ClassesFile).Msg("seed classes failed")
		}
	}

	return db, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(context.Background(), redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func buildClassCache(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.ClassCache {
	memory := repository.NewMemoryClassCache(cfg.Cache.TTL())
	if redisClient == nil {
		return memory
	}
	primary := repository.NewRedisClassCache(redisClient, cfg.Cache.TTL())
	return repository.NewFailoverClassCache(primary, memory, logger)
}

// registerEventConsumers attaches the audit log subscribers, so every booking
// outcome lands in the structured log with its full payload.
func registerEventConsumers(bus *events.EventBus, logger *zerolog.Logger) {
	auditLogger := logger.With().Str("component", "booking-audit").Logger()
	bus.Subscribe(events.EventBookingConfirmed, func(e *events.Event) error {
		auditLogger.Info().Str("event", e.Type).RawJSON("payload", e.Payload).Msg("booking event")
		return nil
	})
	bus.Subscribe(events.EventBookingRejected, func(e *events.Event) error {
		auditLogger.Warn().Str("event", e.Type).RawJSON("payload", e.Payload).Msg("booking event")
		return nil
	})
}

func initSyncWorker(ctx context.Context, cfg *config.Config, db *database.DB, redisClient *redis.Client, logger *zerolog.Logger) domain.SyncWorker {
	if cfg.Google.CredentialsFile == "" || cfg.Google.BookingsSpreadsheetID == "" {
		return nil
	}

	sheetsService, err := google.NewSheetsService(cfg.Google.CredentialsFile, cfg.Google.BookingsSpreadsheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}

	workerLogger := logger.With().Str("component", "sync-worker").Logger()
	syncWorker := worker.NewSyncWorker(db, sheetsService, redisClient, worker.RetryPolicy{}, &workerLogger)
	go syncWorker.Start(ctx)

	logger.Info().Msg("google sheets sync enabled")
	return syncWorker
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startBackup(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Backup.Enabled {
		return
	}
	backupLogger := logger.With().Str("component", "backup").Logger()
	backup := database.NewBackupService(cfg.Database.Path, cfg.Backup, &backupLogger)
	go backup.Start(ctx)
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, logger *zerolog.Logger) error {
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown failed")
	}

	logger.Info().Msg("server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
