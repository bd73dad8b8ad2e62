/*
Package observability provides structured logging and metrics collection
for the LET reviewer workers.

Logs are JSON lines shaped for Loki; metrics are Prometheus collectors.

	Provider (one instance per process)
	    ├── Logger  (logger.LokiLogger, one per component)
	    └── Metrics (metrics.PrometheusMetrics, one per component)

Each component asks the provider for its own logger and metrics, so entries
carry a "component" field and metric names are prefixed with
"{service}_{component}". Trace and request IDs placed in the context by the
handler middleware (see types.ContextKey) are copied into every entry.

# Usage

	provider := observability.NewProvider(&observability.Config{
	    ServiceName: "letreviewer",
	    Environment: "production",
	    LogLevel:    "info",
	})
	defer provider.Close()

	logger := provider.Logger("retriever")
	metrics := provider.Metrics("retriever")

	metrics.StartOperation("retrieve")
	defer metrics.EndOperation("retrieve")
	logger.Info(ctx, "Artifact retrieved", observability.Fields{"bytes": n})

# Testing

The mocks package provides testify mocks for Logger, Metrics and Provider.
Tests that need real collectors should pass a fresh prometheus.NewRegistry()
as Config.Registerer to avoid duplicate registration panics.
*/
package observability
