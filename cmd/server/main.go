package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	licensingapp "github.com/umkm/backend/internal/application/licensing"
	"github.com/umkm/backend/internal/infrastructure/auth"
	"github.com/umkm/backend/internal/infrastructure/cache"
	"github.com/umkm/backend/internal/infrastructure/config"
	"github.com/umkm/backend/internal/infrastructure/event"
	"github.com/umkm/backend/internal/infrastructure/logger"
	"github.com/umkm/backend/internal/infrastructure/notification"
	"github.com/umkm/backend/internal/infrastructure/persistence"
	"github.com/umkm/backend/internal/infrastructure/scheduler"
	"github.com/umkm/backend/internal/infrastructure/storage"
	"github.com/umkm/backend/internal/infrastructure/telemetry"
	"github.com/umkm/backend/internal/interfaces/http/handler"
	"github.com/umkm/backend/internal/interfaces/http/middleware"
	"github.com/umkm/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output}
	log, err := logger.New(logCfg, logger.WithService(cfg.App.Name))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// Telemetry providers. The log provider is built first so the final logger can tee into it.
	logProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize log provider", zap.Error(err))
	}
	if logProvider.IsEnabled() {
		otelCore := logProvider.ZapCore(cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level))
		if log, err = logger.New(logCfg, logger.WithService(cfg.App.Name), logger.WithTee(otelCore)); err != nil {
			panic("Failed to initialize logger: " + err.Error())
		}
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting UMKM licensing backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx := context.Background()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
		if err := logProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down log provider", zap.Error(err))
		}
	}()
	meter := meterProvider.Meter("github.com/umkm/backend")

	licensingMetrics, err := telemetry.NewLicensingMetrics(meter)
	if err != nil {
		log.Fatal("Failed to register licensing metrics", zap.Error(err))
	}

	// Database
	dbOpts := []persistence.DatabaseOption{
		persistence.WithGormLogger(logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level))),
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		tracingCfg := telemetry.DefaultDBTracingConfig()
		tracingCfg.Enabled = true
		tracingCfg.DBName = cfg.Database.DBName
		tracingCfg.LogFullSQL = cfg.App.Env == "development"
		plugin, err := telemetry.NewDBTracingPlugin(tracingCfg, meter, log)
		if err != nil {
			log.Fatal("Failed to create database tracing plugin", zap.Error(err))
		}
		dbOpts = append(dbOpts, persistence.WithPlugins(plugin))
	}
	db, err := persistence.NewDatabase(&cfg.Database, dbOpts...)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Cache in front of the license store
	appCache, err := cache.NewFactory(cfg.Cache, cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.Cache.AllowMemoryFallback),
	).Create()
	if err != nil {
		log.Fatal("Failed to initialize cache", zap.Error(err))
	}
	defer func() {
		if err := appCache.Close(); err != nil {
			log.Error("Error closing cache", zap.Error(err))
		}
	}()

	// Repositories
	cacheOpts := []persistence.CachedRepositoryOption{
		persistence.WithCacheLogger(log),
		persistence.WithCacheLookupRecorder(licensingMetrics),
	}
	applicationRepo := persistence.NewCachedApplicationRepository(
		persistence.NewGormApplicationRepository(db.DB), appCache, cacheOpts...)
	documentRepo := persistence.NewCachedDocumentRepository(
		persistence.NewGormDocumentRepository(db.DB), appCache, cacheOpts...)

	// Event bus and notification handler
	eventBus := event.NewInMemoryEventBus(log)
	notifier, err := notification.NewNotifier(ctx, cfg.Notification, log)
	if err != nil {
		log.Fatal("Failed to initialize notifier", zap.Error(err))
	}
	notificationHandler := licensingapp.NewNotificationHandler(notifier, licensingapp.WithNotificationLogger(log))
	eventBus.Subscribe(notificationHandler)
	log.Info("Event handlers registered",
		zap.Strings("notification_events", notificationHandler.EventTypes()),
	)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Application services
	objectStorage, err := storage.NewObjectStorage(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize object storage", zap.Error(err))
	}
	documentService := licensingapp.NewDocumentService(applicationRepo, documentRepo, objectStorage, log)
	if cfg.Storage.PresignExpiration > 0 {
		docCfg := licensingapp.DefaultDocumentServiceConfig()
		docCfg.UploadURLExpiry = cfg.Storage.PresignExpiration
		documentService.SetConfig(docCfg)
	}

	workflowService := licensingapp.NewWorkflowService(applicationRepo,
		licensingapp.WithEventPublisher(eventBus),
		licensingapp.WithWorkflowMetrics(licensingMetrics),
		licensingapp.WithWorkflowLogger(log),
		licensingapp.WithReviewerWorkloadCap(int64(cfg.Workflow.ReviewerWorkloadCap)),
		licensingapp.WithDraftCleaner(documentService),
	)
	statisticsService := licensingapp.NewStatisticsService(applicationRepo, log)

	// Expiry sweeper
	sweeper := scheduler.NewExpirySweeper(workflowService, log, scheduler.ExpirySweeperConfig{
		Enabled:   cfg.Workflow.ExpirySweepEnabled,
		Interval:  cfg.Workflow.ExpirySweepInterval,
		BatchSize: cfg.Workflow.ExpirySweepBatch,
	})
	if err := sweeper.Start(ctx); err != nil {
		log.Fatal("Failed to start expiry sweeper", zap.Error(err))
	}

	// HTTP
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine, err := router.NewEngine(router.EngineConfig{
		HTTP:           cfg.HTTP,
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: tracerProvider.IsEnabled(),
		Meter:          meter,
		Logger:         log,
		JWTService:     auth.NewJWTService(cfg.JWT),
		Licenses:       handler.NewLicenseHandler(workflowService, statisticsService, documentService),
		Health: handler.NewHealthHandler(
			handler.HealthCheck{Name: "database", Pinger: db},
			handler.HealthCheck{Name: "cache", Pinger: appCache},
		),
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownTimeout := cfg.HTTP.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := sweeper.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping expiry sweeper", zap.Error(err))
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
