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
	httpadapter "letreviewer/workers/retriever/internal/adapters/http"
	"letreviewer/workers/retriever/internal/domain/service"
	"letreviewer/workers/retriever/internal/worker"
)

func main() {
	cfg := loadConfiguration()

	deps := initializeDependencies(cfg)

	app := buildApplication(cfg, deps)

	startApplication(cfg, app)
}

// Dependencies holds all initialized infrastructure components
type Dependencies struct {
	provider   observability.Provider
	httpClient *httpadapter.Client
	logger     observability.Logger
	metrics    observability.Metrics
}

// Application holds the complete application stack
type Application struct {
	handler *handler.Handler
	logger  observability.Logger
	metrics observability.Metrics
}

// loadConfiguration loads and validates the retriever configuration
func loadConfiguration() *config.Config {
	cfgProvider := config.GetProvider()
	cfgProvider.MustLoadFor(config.WorkerRetriever)
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
			"worker":  config.WorkerRetriever,
		},
	})

	logStartup(cfg, provider)

	return &Dependencies{
		provider:   provider,
		httpClient: createHTTPClient(cfg, provider),
		logger:     provider.Logger("app"),
		metrics:    provider.Metrics("app"),
	}
}

// logStartup logs application startup information
func logStartup(cfg *config.Config, provider observability.Provider) {
	logger := provider.Logger("main")

	logger.Info(context.Background(), "Starting application", observability.Fields{
		"service":     cfg.ServiceName,
		"version":     cfg.Version,
		"environment": cfg.Environment,
		"resources":   len(cfg.Retriever.Resources),
		"extractor":   cfg.Retriever.TokenExtractor,
	})

	provider.Metrics("main").RecordSuccess("application_start")
}

// createHTTPClient creates the outbound client used against the file host
func createHTTPClient(cfg *config.Config, provider observability.Provider) *httpadapter.Client {
	return httpadapter.NewClient(
		httpadapter.ConfigFrom(cfg.Retriever),
		provider.Logger("client.http"),
		provider.Metrics("client_http"),
	)
}

// buildApplication assembles the application layers
func buildApplication(cfg *config.Config, deps *Dependencies) *Application {
	extractor, err := service.NewTokenExtractor(cfg.Retriever.TokenExtractor)
	if err != nil {
		deps.logger.Error(context.Background(), "Invalid token extractor", err, nil)
		log.Fatalf("Failed to build application: %v", err)
	}

	retriever := service.NewRetriever(
		deps.httpClient,
		extractor,
		cfg.Retriever,
		deps.provider.Logger("service.retriever"),
		deps.provider.Metrics("service"),
	)

	w := worker.NewRetrieverWorker(
		retriever,
		cfg.Retriever,
		deps.provider.Logger("worker.retriever"),
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
		ErrorStyle:       platforms.ErrorStyleSimple,
		ReadTimeout:      cfg.HTTP.ReadTimeout,
		BinaryMediaTypes: cfg.Lambda.BinaryMediaTypes,
	},
		platforms.WithPaths("/api/download"),
		platforms.WithMethods(http.MethodGet),
	)
	if err != nil {
		app.logger.Error(ctx, "Failed to start handler", err, nil)
		app.metrics.RecordError("handler_start", "serve")
		log.Fatalf("Failed to start: %v", err)
	}
}
