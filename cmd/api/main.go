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

	"github.com/Diegogs92/vuelavuela/internal/api"
	"github.com/Diegogs92/vuelavuela/internal/config"
	"github.com/Diegogs92/vuelavuela/internal/database"
	"github.com/Diegogs92/vuelavuela/internal/domain"
	"github.com/Diegogs92/vuelavuela/internal/events"
	"github.com/Diegogs92/vuelavuela/internal/google"
	"github.com/Diegogs92/vuelavuela/internal/logging"
	"github.com/Diegogs92/vuelavuela/internal/metrics"
	"github.com/Diegogs92/vuelavuela/internal/models"
	"github.com/Diegogs92/vuelavuela/internal/notify"
	"github.com/Diegogs92/vuelavuela/internal/repository"
	"github.com/Diegogs92/vuelavuela/internal/service"
	"github.com/Diegogs92/vuelavuela/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
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
		defer (func() { _ = closer.Close() })()
	}

	catalog, err := loadCatalog(&logger)
	if err != nil {
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessionRepo := buildSessionRepo(cfg, redisClient, &logger)
	sessionService := service.NewSessionService(sessionRepo, cfg.Auth.JWTSecret, cfg.Auth.SessionTTL, &logger)

	eventBus := events.NewEventBus()
	initNotifications(cfg, eventBus, &logger)

	syncWorker := initSheetsSync(ctx, cfg, db, redisClient, &logger)

	travelService := service.NewTravelService(db, eventBus, syncWorker, &logger)

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backupService.Start(ctx)
	}

	httpServer := api.NewServer(cfg, db, travelService, sessionService, catalog, &logger)

	startMetrics(ctx, cfg, &logger)

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

func loadCatalog(logger *zerolog.Logger) (*models.Catalog, error) {
	catalogPath := os.Getenv("CATALOG_PATH")
	if catalogPath == "" {
		catalogPath = "configs/catalog.yaml"
	}
	catalogData, err := os.ReadFile(catalogPath)
	if err != nil {
		logger.Error().Err(err).Str("catalog_path", catalogPath).Msg("read catalog")
		return nil, err
	}

	var catalog models.Catalog
	if err := yaml.Unmarshal(catalogData, &catalog); err != nil {
		logger.Error().Err(err).Str("catalog_path", catalogPath).Msg("parse catalog")
		return nil, err
	}

	return &catalog, nil
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

// buildSessionRepo wires the failover pair: redis first, process memory
// when redis is away.
func buildSessionRepo(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.SessionRepository {
	memoryRepo := repository.NewMemorySessionRepository(cfg.Auth.SessionTTL)
	if redisClient == nil {
		return memoryRepo
	}
	redisRepo := repository.NewRedisSessionRepository(redisClient, cfg.Auth.SessionTTL)
	return repository.NewFailoverSessionRepository(redisRepo, memoryRepo, logger)
}

func initNotifications(cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) {
	var mailer domain.Mailer
	if cfg.Mail.Enabled {
		mailer = notify.NewResendMailer(cfg.Mail.ResendAPIKey, cfg.Mail.From, logger)
	} else {
		logger.Info().Msg("mail notifications disabled")
	}

	telegram, err := notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.AgencyChatID, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, continuing without telegram")
		telegram = nil
	}

	if mailer == nil && telegram == nil {
		return
	}

	dispatcher := notify.NewDispatcher(mailer, telegram, cfg.Mail.AgencyEmail, cfg.App.BaseURL, logger)
	dispatcher.Register(bus)
}

func initSheetsSync(ctx context.Context, cfg *config.Config, db *database.DB, redisClient *redis.Client, logger *zerolog.Logger) domain.SyncWorker {
	if cfg.Google.CredentialsFile == "" || cfg.Google.RequestsSpreadsheetID == "" {
		return nil
	}

	sheetsService, err := google.NewSheetsService(cfg.Google.CredentialsFile, cfg.Google.RequestsSpreadsheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}
	logger.Info().Msg("google sheets connected")

	syncWorker := worker.NewSheetsWorker(db, sheetsService, redisClient, worker.RetryPolicy{}, logger)
	go syncWorker.Start(ctx)
	return syncWorker
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServer(ctx context.Context, httpServer *api.Server, logger *zerolog.Logger) error {
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)

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
