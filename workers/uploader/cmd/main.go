package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"letreviewer/shared/config"
	"letreviewer/shared/handler"
	"letreviewer/shared/handler/platforms"
	"letreviewer/shared/observability"
	"letreviewer/shared/storage"
	storagetypes "letreviewer/shared/storage/types"
	"letreviewer/workers/uploader/internal/domain/service"
	"letreviewer/workers/uploader/internal/worker"
)

func main() {
	cfg := loadConfiguration()

	deps := initializeDependencies(cfg)
	defer storage.GetProvider().Close()

	app := buildApplication(cfg, deps)

	startApplication(cfg, app)
}

// Dependencies holds all initialized infrastructure components
type Dependencies struct {
	provider observability.Provider
	storage  storagetypes.ObjectStorage
	logger   observability.Logger
	metrics  observability.Metrics
}

// Application holds the complete application stack
type Application struct {
	handler *handler.Handler
	logger  observability.Logger
	metrics observability.Metrics
}

// loadConfiguration loads and validates the uploader configuration
func loadConfiguration() *config.Config {
	cfgProvider := config.GetProvider()
	cfgProvider.MustLoadFor(config.WorkerUploader)
	return cfgProvider.MustGet()
}

// initializeDependencies sets up all infrastructure dependencies
func initializeDependencies(cfg *config.Config) *Dependencies {
	provider := observability.NewProvider(&observability.Config{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		LogLevel:    cfg.LogLevel,
		AdditionalFields: observability.Fields{
			"version": cfg.Version,
			"worker":  config.WorkerUploader,
		},
	})

	logStartup(cfg, provider)

	return &Dependencies{
		provider: provider,
		storage:  initializeStorage(cfg, provider),
		logger:   provider.Logger("app"),
		metrics:  provider.Metrics("app"),
	}
}

// logStartup logs application startup information
func logStartup(cfg *config.Config, provider observability.Provider) {
	provider.Logger("main").Info(context.Background(), "Starting application", observability.Fields{
		"service":     cfg.ServiceName,
		"version":     cfg.Version,
		"environment": cfg.Environment,
		"storage":     cfg.Storage.Provider,
	})

	provider.Metrics("main").RecordSuccess("application_start")
}

// initializeStorage sets up the storage provider with observability
func initializeStorage(cfg *config.Config, provider observability.Provider) storagetypes.ObjectStorage {
	logger := provider.Logger("storage")
	metrics := provider.Metrics("storage")

	if err := storage.GetProvider().Initialize(cfg, logger, metrics); err != nil {
		logger.Error(context.Background(), "Failed to initialize storage", err, nil)
		metrics.RecordError("init", "storage")
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	metrics.RecordSuccess("init")
	return storage.GetProvider().MustGetStorage()
}

// buildApplication assembles the application layers
func buildApplication(cfg *config.Config, deps *Dependencies) *Application {
	uploadService := service.NewUploadService(
		deps.storage,
		cfg.Upload,
		deps.provider.Logger("service.upload"),
		deps.provider.Metrics("service"),
	)

	w := worker.NewUploaderWorker(
		uploadService,
		deps.storage,
		deps.provider.Logger("worker.uploader"),
		deps.provider.Metrics("worker"),
	)

	h := handler.NewFactory(w, deps.provider).
		WithHandlerConfig(cfg.Handler).
		WithRetryConfig(cfg.Retry).
		Create()

	return &Application{
		handler: h,
		logger:  deps.logger,
		metrics: deps.metrics,
	}
}

// startApplication serves until SIGINT or SIGTERM
func startApplication(cfg *config.Config, app *Application) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app.logger.Info(ctx, "Starting handler", observability.Fields{
		"platform": app.handler.Config().Platform,
		"addr":     cfg.HTTP.Addr,
	})
	app.metrics.RecordSuccess("handler_start")

	err := platforms.Run(ctx, app.handler, platforms.ServeConfig{
		Addr:             cfg.HTTP.Addr,
		MetricsAddr:      cfg.Observability.MetricsAddr,
		MetricsPath:      cfg.Observability.MetricsPath,
		ErrorStyle:       platforms.ErrorStyleEnvelope,
		ReadTimeout:      cfg.HTTP.ReadTimeout,
		BinaryMediaTypes: cfg.Lambda.BinaryMediaTypes,
	},
		platforms.WithPaths("/api/upload"),
		platforms.WithMethods(http.MethodPost),
	)
	if err != nil {
		app.logger.Error(ctx, "Failed to start handler", err, nil)
		app.metrics.RecordError("handler_start", "serve")
		log.Fatalf("Failed to start: %v", err)
	}
}
