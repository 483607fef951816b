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

	"tasker/internal/api"
	"tasker/internal/backend"
	"tasker/internal/config"
	"tasker/internal/database"
	"tasker/internal/domain"
	"tasker/internal/events"
	"tasker/internal/lifecycle"
	"tasker/internal/logging"
	"tasker/internal/metrics"
	"tasker/internal/models"
	"tasker/internal/pricing"
	"tasker/internal/repository"
	"tasker/internal/service"

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

	catalog, err := loadCatalog(cfg.Catalog.Path, logger)
	if err != nil {
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	redisClient := initRedis(cfg, logger)
	if redisClient != nil {
		defer repository.Close(redisClient)
	}

	engine, err := buildEngine(cfg)
	if err != nil {
		return fmt.Errorf("init pricing engine: %w", err)
	}

	client := backend.NewClient(backend.Config{
		BaseURL:   cfg.Backend.BaseURL,
		Timeout:   cfg.Backend.Timeout,
		RateLimit: cfg.Backend.RateLimit.RPS,
		Burst:     cfg.Backend.RateLimit.Burst,
		Retry: backend.RetryPolicy{
			MaxRetries:    cfg.Backend.Retry.MaxRetries,
			InitialDelay:  cfg.Backend.Retry.InitialDelay,
			MaxDelay:      cfg.Backend.Retry.MaxDelay,
			BackoffFactor: cfg.Backend.Retry.BackoffFactor,
		},
	}, logging.Component(logger, "backend"))
	if redisClient != nil {
		client.UseRedisCache(redisClient, cfg.Backend.CacheTTL)
	}

	eventBus := events.NewEventBus()
	subscribeJobLog(eventBus, logging.Component(logger, "events"))

	svcLogger := logging.Component(logger, "service")
	catalogService := service.NewCatalogService(client, catalog, svcLogger)
	drafts := service.NewDraftService(draftRepository(cfg, redisClient, logger), svcLogger)
	bookings := service.NewBookingService(catalogService, engine, client, drafts, db, eventBus, service.SubmitLimits{
		MaxBookingDays: cfg.Booking.MaxBookingDays,
		RateLimit:      cfg.Booking.SubmitRateLimit,
		RateWindow:     cfg.Booking.SubmitRateWindow,
	}, svcLogger)
	jobs := service.NewJobService(client, lifecycle.NewMachine(cfg.Lifecycle.CancelWindow), db, catalogService, eventBus, svcLogger)
	reports := service.NewReportService(jobs, cfg.Exports.Path, engine.Location(), svcLogger)

	health := []api.HealthCheck{{Name: "sqlite", Check: db.PingContext}}
	if redisClient != nil {
		health = append(health, api.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return repository.Ping(ctx, redisClient)
		}})
	}

	httpServer := api.NewServer(cfg.API, api.Deps{
		Booking: bookings,
		Jobs:    jobs,
		Drafts:  drafts,
		Reports: reports,
		Catalog: catalogService,
		Health:  health,
	}, logging.Component(logger, "http"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startMetrics(ctx, cfg, logger)
	startBackups(ctx, cfg, db, logger)

	return startServer(ctx, httpServer, cfg, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logging.Component(baseLogger, "api-main"), closer, nil
}

func loadCatalog(path string, logger *zerolog.Logger) ([]models.CatalogEntry, error) {
	if env := os.Getenv("SERVICES_PATH"); env != "" {
		path = env
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error().Err(err).Str("services_path", path).Msg("read service catalog")
		return nil, err
	}

	var catalogConfig struct {
		Services []models.CatalogEntry `yaml:"services"`
	}
	if err := yaml.Unmarshal(data, &catalogConfig); err != nil {
		logger.Error().Err(err).Str("services_path", path).Msg("parse service catalog")
		return nil, err
	}
	if err := config.ValidateCatalog(catalogConfig.Services); err != nil {
		return nil, fmt.Errorf("service catalog: %w", err)
	}

	logger.Info().Int("services", len(catalogConfig.Services)).Msg("service catalog loaded")
	return catalogConfig.Services, nil
}

func buildEngine(cfg *config.Config) (*pricing.Engine, error) {
	holidays := cfg.Pricing.Holidays
	if len(holidays) == 0 {
		holidays = pricing.DefaultHolidays
	}
	calendar, err := pricing.NewCalendar(holidays)
	if err != nil {
		return nil, err
	}

	m := cfg.Pricing.Multipliers
	return pricing.NewEngine(pricing.Config{
		PremiumMultiplier: m.Premium,
		WeekendMultiplier: m.Weekend,
		SameDayMultiplier: m.SameDay,
		NextDayMultiplier: m.NextDay,
		HolidayMultiplier: m.Holiday,
		GasRefillFee:      cfg.Pricing.GasRefillFee,
		DrumRemovalFee:    cfg.Pricing.DrumRemovalFee,
		Order:             cfg.Pricing.Order,
		Calendar:          calendar,
		Location:          cfg.Pricing.Location(),
	})
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(context.Background(), redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = repository.Close(redisClient)
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func draftRepository(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.DraftRepository {
	memory := repository.NewMemoryDraftRepository(cfg.Booking.DraftTTL)
	if redisClient == nil {
		return memory
	}
	primary := repository.NewRedisDraftRepository(redisClient, cfg.Booking.DraftTTL)
	return repository.NewFailoverDraftRepository(primary, memory, logging.Component(logger, "drafts"))
}

// subscribeJobLog writes every job event to the log.
func subscribeJobLog(bus *events.EventBus, logger *zerolog.Logger) {
	bus.Subscribe(events.AllEvents, func(e *events.Event) error {
		logger.Info().
			Str("event_id", e.ID).
			Str("event_type", e.Type).
			RawJSON("payload", e.Payload).
			Msg("job event")
		return nil
	})
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

func startBackups(ctx context.Context, cfg *config.Config, db *database.DB, logger *zerolog.Logger) {
	if !cfg.Backup.Enabled || db.Path() == ":memory:" {
		return
	}
	backups := database.NewBackupService(db.Path(), cfg.Backup, logging.Component(logger, "backup"))
	go backups.Start(ctx)
}

func startServer(ctx context.Context, httpServer *api.Server, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("API server stopped")
	return nil
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
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
