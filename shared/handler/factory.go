package handler

import (
	"os"

	"letreviewer/shared/config"
	"letreviewer/shared/observability"
)

// Platform names understood by the factory and the platform adapters.
const (
	PlatformHTTP   = "http"
	PlatformLambda = "lambda"
)

// Factory assembles a Handler with the standard middleware stack.
type Factory struct {
	worker     Worker
	provider   observability.Provider
	handlerCfg config.HandlerConfig
	retryCfg   config.RetryConfig
}

// NewFactory creates a factory using the default handler and retry settings.
func NewFactory(worker Worker, provider observability.Provider) *Factory {
	return &Factory{
		worker:     worker,
		provider:   provider,
		handlerCfg: config.DefaultHandlerConfig(),
		retryCfg:   config.DefaultRetryConfig(),
	}
}

// WithHandlerConfig overrides the handler configuration.
func (f *Factory) WithHandlerConfig(cfg config.HandlerConfig) *Factory {
	f.handlerCfg = cfg
	return f
}

// WithRetryConfig overrides the retry configuration.
func (f *Factory) WithRetryConfig(cfg config.RetryConfig) *Factory {
	f.retryCfg = cfg
	return f
}

// Create builds a handler for the configured platform, detecting it from the
// environment when unset.
func (f *Factory) Create() *Handler {
	if f.handlerCfg.Platform == "" || f.handlerCfg.Platform == "auto" {
		f.handlerCfg.Platform = DetectPlatform()
	}

	cfg := f.handlerCfg
	h := NewHandler(f.worker, f.provider, &cfg)
	f.applyDefaultMiddleware(h)
	return h
}

// CreateHTTP builds a handler for the HTTP adapter.
func (f *Factory) CreateHTTP() *Handler {
	f.handlerCfg.Platform = PlatformHTTP
	return f.Create()
}

// CreateLambda builds a handler for the API Gateway Lambda adapter.
func (f *Factory) CreateLambda() *Handler {
	f.handlerCfg.Platform = PlatformLambda
	return f.Create()
}

// Middleware order, outermost first: recovery, timeout, tracing, metrics,
// logging, validation, retry.
func (f *Factory) applyDefaultMiddleware(h *Handler) {
	h.Use(RecoveryMiddleware(f.provider))

	if f.handlerCfg.Timeout > 0 {
		h.Use(TimeoutMiddleware(f.handlerCfg.Timeout))
	}
	if f.handlerCfg.EnableTracing {
		h.Use(TracingMiddleware())
	}
	if f.handlerCfg.EnableMetrics {
		h.Use(MetricsMiddleware(f.provider))
	}

	h.Use(LoggingMiddleware(f.provider))
	h.Use(ValidationMiddleware(payloadLimit(f.handlerCfg.MaxRequestSize)))

	if f.retryCfg.MaxAttempts > 0 {
		retry := f.retryCfg
		h.Use(RetryMiddleware(&retry))
	}
}

// payloadLimit converts a body limit into a payload limit. Adapters carry file
// parts base64 encoded inside the JSON payload, which grows them by a third.
func payloadLimit(bodyLimit int64) int64 {
	if bodyLimit <= 0 {
		return 0
	}
	return bodyLimit/3*4 + 64*1024
}

// DetectPlatform reports "lambda" inside the AWS Lambda runtime and "http"
// everywhere else.
func DetectPlatform() string {
	for _, key := range []string{"AWS_LAMBDA_FUNCTION_NAME", "AWS_LAMBDA_RUNTIME_API"} {
		if _, ok := os.LookupEnv(key); ok {
			return PlatformLambda
		}
	}
	return PlatformHTTP
}
