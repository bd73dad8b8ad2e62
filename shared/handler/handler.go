package handler

import (
	"context"

	"letreviewer/shared/config"
	"letreviewer/shared/observability"
	"letreviewer/shared/observability/types"
)

// Handler wraps a Worker with the middleware chain shared by every platform
// adapter.
type Handler struct {
	worker      Worker
	obs         observability.Provider
	middlewares []Middleware
	config      *config.HandlerConfig
}

// Middleware wraps a HandlerFunc to add a cross-cutting concern.
type Middleware func(next HandlerFunc) HandlerFunc

// HandlerFunc is the function signature for handling requests.
type HandlerFunc func(ctx context.Context, req Request) (Response, error)

// NewHandler creates a handler without any middleware.
// Most callers should use the Factory instead.
func NewHandler(worker Worker, provider observability.Provider, cfg *config.HandlerConfig) *Handler {
	if cfg == nil {
		def := config.DefaultHandlerConfig()
		cfg = &def
	}
	return &Handler{
		worker:      worker,
		obs:         provider,
		config:      cfg,
		middlewares: []Middleware{},
	}
}

// Use appends middleware to the chain. The first middleware added is the
// outermost one.
func (h *Handler) Use(middleware Middleware) {
	h.middlewares = append(h.middlewares, middleware)
}

// Handle processes a request through the middleware chain and the worker.
func (h *Handler) Handle(ctx context.Context, req Request) (Response, error) {
	chain := h.buildHandlerChain()

	ctx = context.WithValue(ctx, types.RequestIDKey, req.ID)
	ctx = context.WithValue(ctx, types.WorkerKey, h.worker.Name())
	ctx = context.WithValue(ctx, types.PlatformKey, h.config.Platform)

	return chain(ctx, req)
}

func (h *Handler) buildHandlerChain() HandlerFunc {
	next := h.workerHandler
	for i := len(h.middlewares) - 1; i >= 0; i-- {
		next = h.middlewares[i](next)
	}
	return next
}

func (h *Handler) workerHandler(ctx context.Context, req Request) (Response, error) {
	return h.worker.Process(ctx, req)
}

// Health checks the health of the worker.
func (h *Handler) Health(ctx context.Context) error {
	return h.worker.Health(ctx)
}

// Config returns the handler configuration.
func (h *Handler) Config() *config.HandlerConfig {
	return h.config
}

// Worker returns the underlying worker.
func (h *Handler) Worker() Worker {
	return h.worker
}

// Observability returns the provider the handler logs and measures with.
func (h *Handler) Observability() observability.Provider {
	return h.obs
}
