package platforms

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"letreviewer/shared/handler"
	"letreviewer/shared/observability/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServeConfig describes how a worker binary exposes its handler.
type ServeConfig struct {
	Addr        string
	MetricsAddr string // empty or equal to Addr serves metrics on the main listener
	MetricsPath string // empty disables the metrics endpoint
	ErrorStyle  ErrorStyle

	// ReadTimeout bounds reading one HTTP request, body included.
	ReadTimeout time.Duration

	// BinaryMediaTypes are base64 encoded in Lambda proxy responses.
	BinaryMediaTypes []string

	// ShutdownTimeout bounds the graceful drain once ctx is cancelled.
	ShutdownTimeout time.Duration

	// Gatherer defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
}

// Run serves h on the platform it was built for. On Lambda it hands control to
// the runtime and does not return. Over HTTP it serves until ctx is cancelled
// and then drains in-flight requests.
func Run(ctx context.Context, h *handler.Handler, cfg ServeConfig, opts ...HTTPOption) error {
	if h.Config().Platform == handler.PlatformLambda {
		NewLambdaAdapter(h, cfg.ErrorStyle, WithBinaryMediaTypes(cfg.BinaryMediaTypes...)).Start()
		return nil
	}

	logger := h.Observability().Logger("server")
	opts = append([]HTTPOption{WithErrorStyle(cfg.ErrorStyle), WithReadTimeout(cfg.ReadTimeout)}, opts...)
	adapter := NewHTTPAdapter(h, opts...)

	mux := http.NewServeMux()
	servers := []*http.Server{}

	if cfg.MetricsPath != "" {
		gatherer := cfg.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		metricsHandler := promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})

		if cfg.MetricsAddr == "" || cfg.MetricsAddr == cfg.Addr {
			mux.Handle(cfg.MetricsPath, metricsHandler)
		} else {
			metricsMux := http.NewServeMux()
			metricsMux.Handle(cfg.MetricsPath, metricsHandler)
			servers = append(servers, &http.Server{
				Addr:              cfg.MetricsAddr,
				Handler:           metricsMux,
				ReadHeaderTimeout: 10 * time.Second,
			})
		}
	}
	servers = append([]*http.Server{adapter.Server(cfg.Addr, mux)}, servers...)

	listeners := make([]net.Listener, 0, len(servers))
	for _, srv := range servers {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			for _, l := range listeners {
				l.Close()
			}
			return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
		}
		listeners = append(listeners, ln)
		logger.Info(ctx, "HTTP server listening", types.Fields{"addr": ln.Addr().String()})
	}

	return serve(ctx, servers, listeners, cfg.ShutdownTimeout, logger)
}

// serve runs every server on its listener until ctx is cancelled or one of
// them fails, then shuts all of them down.
func serve(ctx context.Context, servers []*http.Server, listeners []net.Listener, timeout time.Duration, logger types.Logger) error {
	errCh := make(chan error, len(servers))
	for i, srv := range servers {
		go func(srv *http.Server, ln net.Listener) {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}(srv, listeners[i])
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info(context.Background(), "Shutting down HTTP server", nil)
	case runErr = <-errCh:
		logger.Error(context.Background(), "HTTP server failed", runErr, nil)
	}

	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
			runErr = fmt.Errorf("failed to shut down server: %w", err)
		}
	}

	return runErr
}
