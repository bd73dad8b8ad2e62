// Package types holds the observability contracts shared by every worker.
//
// The concrete implementations live in the logger and metrics packages; the
// workers only ever depend on the interfaces declared here.
package types

import (
	"context"
	"io"

	"github.com/prometheus/client_golang/prometheus"
)

// Logger defines the contract for structured logging.
// Implementations emit one JSON object per entry, suitable for Loki.
// All methods are context-aware so trace and request IDs can be attached.
type Logger interface {
	// Info logs an informational message.
	Info(ctx context.Context, msg string, fields Fields)

	// Error logs a failure together with the error that caused it.
	//
	// Parameters:
	//   - ctx: Context for request tracing and cancellation
	//   - msg: What was being attempted
	//   - err: The error to record
	//   - fields: Additional structured fields for context
	Error(ctx context.Context, msg string, err error, fields Fields)

	// Warn logs a potentially harmful situation that does not stop processing.
	Warn(ctx context.Context, msg string, fields Fields)

	// Debug logs detail that is normally filtered out in production.
	Debug(ctx context.Context, msg string, fields Fields)

	// WithFields returns a Logger that adds fields to every subsequent entry.
	//
	// Parameters:
	//   - fields: Fields to persist on the returned logger
	//
	// Returns:
	//   - A new Logger; the receiver is not modified
	WithFields(fields Fields) Logger
}

// Metrics defines the contract for metrics collection.
// Implementations should follow Prometheus naming conventions.
type Metrics interface {
	// RecordSuccess increments the success counter for an operation type.
	RecordSuccess(operationType string)

	// RecordError increments the error counters for an operation and error type.
	//
	// Parameters:
	//   - operationType: The operation that failed
	//   - errorType: Low-cardinality error classification, e.g. "upstream_unavailable"
	RecordError(operationType string, errorType string)

	// RecordDuration observes an operation duration in seconds.
	RecordDuration(operation string, duration float64)

	// RecordFileSize observes the size in bytes of a payload of the given type.
	//
	// Parameters:
	//   - fileType: Payload kind, e.g. "artifact"
	//   - bytes: Payload size in bytes
	RecordFileSize(fileType string, bytes int64)

	// StartOperation increments the in-progress gauge. Pair with EndOperation.
	StartOperation(operation string)

	// EndOperation decrements the in-progress gauge.
	EndOperation(operation string)
}

// Fields represents structured logging fields as key-value pairs.
// Values must be JSON-serializable.
type Fields map[string]interface{}

// ContextKey is the type of the context keys the logger understands.
type ContextKey string

// Context keys read by the logger and set by the handler middleware.
const (
	TraceIDKey   ContextKey = "trace_id"
	SpanIDKey    ContextKey = "span_id"
	RequestIDKey ContextKey = "request_id"
	WorkerKey    ContextKey = "worker"
	PlatformKey  ContextKey = "platform"
	ResourceKey  ContextKey = "resource"
)

// Config holds observability configuration for the provider.
type Config struct {
	// ServiceName identifies the service in logs and prefixes metric names.
	ServiceName string

	// Environment is the deployment environment ("development", "production", ...).
	Environment string

	// LogLevel is the minimum level written: "debug", "info", "warn" or "error".
	LogLevel string

	// LogOutput is where entries are written. Defaults to os.Stdout.
	LogOutput io.Writer

	// Registerer receives every metric collector. Defaults to prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer

	// AdditionalFields are attached to every log entry.
	AdditionalFields Fields
}

// Provider manages the lifecycle of observability components.
// Each component gets its own Logger and Metrics instance; repeated calls
// with the same component name return the same instance.
type Provider interface {
	// Logger returns the Logger for the component.
	Logger(component string) Logger

	// Metrics returns the Metrics collector for the component.
	Metrics(component string) Metrics

	// Close releases the provider's resources.
	Close() error
}
