package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smiledent/internal/api"
	"smiledent/internal/config"
	"smiledent/internal/database"
	"smiledent/internal/domain"
	"smiledent/internal/events"
	"smiledent/internal/google"
	"smiledent/internal/logging"
	"smiledent/internal/metrics"
	"smiledent/internal/models"
	"smiledent/internal/repository"
	"smiledent/internal/service"
	"smiledent/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
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
		defer (func() { _ = closer.Close() })()
	}

	catalog, err := loadCatalog(cfg.Catalog.Path)
	if err != nil {
		logger.Error().Err(err).Str("catalog_path", cfg.Catalog.Path).Msg("load catalog")
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, sessions := initSessions(ctx, cfg, &logger)
	if redisClient != nil {
		defer (func() { _ = repository.Close(redisClient) })()
	}

	authService := service.NewAuthService(db, sessions, cfg.Session, &logger)
	if err := authService.SeedAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
		logger.Error().Err(err).Msg("seed admin")
		return err
	}

	eventBus := events.NewEventBus(&logger)

	syncWorker := worker.NewSyncWorker(db, db, initTargets(ctx, cfg, catalog, &logger), redisClient, cfg.Worker, &logger)
	if syncWorker.Enabled() {
		syncWorker.Subscribe(eventBus)
		go syncWorker.Start(ctx)
	}

	go database.NewBackupService(db, cfg.Backup, &logger).Start(ctx)

	importService := service.NewImportService(db, eventBus, &logger)
	httpServer, err := api.NewHTTPServer(cfg, db, api.Services{
		Booking: service.NewBookingService(db, eventBus, &logger),
		Auth:    authService,
		Admin:   service.NewAdminService(db, importService, eventBus, catalog, cfg.Import.LegacyPath, &logger),
	}, &logger)
	if err != nil {
		logger.Error().Err(err).Msg("create http server")
		return err
	}

	var grpcServer *api.GRPCServer
	if cfg.GRPC.Enabled {
		grpcServer, err = api.NewGRPCServer(cfg.GRPC, db, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
	}

	startMetrics(ctx, cfg, &logger)

	return startServers(ctx, grpcServer, httpServer, cfg, &logger)
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
	logger := baseLogger.With().Str("component", "web-main").Logger()

	return cfg, logger, closer, nil
}

// initSessions prefers Redis and keeps an in-memory store as failover. Without a
// Redis address sessions live in memory only.
func initSessions(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, domain.SessionRepository) {
	memory := repository.NewMemorySessionRepository()
	if cfg.Redis.Address == "" {
		logger.Info().Msg("redis not configured, sessions kept in memory")
		return nil, memory
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, sessions fall back to memory until it recovers")
	} else {
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	}

	primary := repository.NewRedisSessionRepository(redisClient)
	return redisClient, repository.NewFailoverSessionRepository(primary, memory, logger)
}

func initTargets(ctx context.Context, cfg *config.Config, catalog models.Catalog, logger *zerolog.Logger) worker.Targets {
	var targets worker.Targets

	if sheetsService := initGoogleSheets(ctx, cfg, catalog, logger); sheetsService != nil {
		targets.Sheets = sheetsService
	}
	if notifier := initTelegram(cfg, catalog, logger); notifier != nil {
		targets.Notifier = notifier
	}
	return targets
}

func initGoogleSheets(ctx context.Context, cfg *config.Config, catalog models.Catalog, logger *zerolog.Logger) *google.SheetsService {
	if !cfg.Google.Enabled() {
		return nil
	}

	sheetsService, err := google.NewSheetsService(ctx, cfg.Google, catalog)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}
	if err := sheetsService.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets connection test failed, continuing without sheets")
		return nil
	}
	if err := sheetsService.EnsureHeader(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets header check failed")
	}
	if err := sheetsService.WarmUpCache(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets cache warm-up failed")
	}

	logger.Info().Str("spreadsheet_id", cfg.Google.SpreadsheetID).Msg("google sheets connected")
	return sheetsService
}

func initTelegram(cfg *config.Config, catalog models.Catalog, logger *zerolog.Logger) *service.TelegramNotifier {
	if !cfg.Telegram.Enabled() {
		return nil
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram bot init failed, continuing without notifications")
		return nil
	}
	botAPI.Debug = cfg.Telegram.Debug

	logger.Info().Str("bot", botAPI.Self.UserName).Int("chats", len(cfg.Telegram.ChatIDs)).Msg("telegram notifications enabled")
	return service.NewTelegramNotifier(botAPI, cfg.Telegram.ChatIDs, catalog, logger)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	if grpcServer != nil {
		go grpcServer.WatchHealth(ctx)
		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
	}

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- httpServer.Start()
	}()

	logger.Info().
		Int("http_port", cfg.HTTP.Port).
		Bool("grpc", grpcServer != nil).
		Msg("SmileDent started")

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-httpErr:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			runErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("SmileDent stopped")
	return runErr
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
