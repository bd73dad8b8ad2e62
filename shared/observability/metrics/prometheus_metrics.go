// Package metrics provides Prometheus-compatible metrics collection
// for monitoring and alerting across the LET reviewer workers.
package metrics

import (
	"fmt"
	"regexp"

	"github.com/prometheus/client_golang/prometheus"
)

var invalidNameChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// PrometheusMetrics implements the Metrics interface using Prometheus client library.
// All metric names are prefixed with the sanitized service name.
type PrometheusMetrics struct {
	serviceName string

	// processedTotal tracks processed items by status and type
	processedTotal *prometheus.CounterVec
	// errorsTotal tracks errors by error type and operation
	errorsTotal *prometheus.CounterVec
	// durationSeconds tracks operation latency with the default buckets
	durationSeconds *prometheus.HistogramVec
	// fileSizeBytes tracks payload sizes with exponential buckets
	fileSizeBytes *prometheus.HistogramVec
	// inProgress tracks concurrent operations
	inProgress *prometheus.GaugeVec
}

// New creates a PrometheusMetrics registered with the default Prometheus registry.
//
// Registered metrics:
//   - {serviceName}_processed_total
//   - {serviceName}_errors_total
//   - {serviceName}_duration_seconds
//   - {serviceName}_file_size_bytes
//   - {serviceName}_in_progress
//
// Panics if a metric with the same name is already registered.
func New(serviceName string) *PrometheusMetrics {
	return NewWithRegisterer(serviceName, prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a PrometheusMetrics registered with reg.
// Characters outside [a-zA-Z0-9_] in serviceName are replaced by '_'.
//
// Parameters:
//   - serviceName: Prefix for every metric name, e.g. "letreviewer_retriever"
//   - reg: Registry receiving the collectors; tests pass a fresh prometheus.NewRegistry()
//
// Returns:
//   - A PrometheusMetrics whose collectors are already registered
//
// Panics if a collector with the same name is already registered with reg.
func NewWithRegisterer(serviceName string, reg prometheus.Registerer) *PrometheusMetrics {
	prefix := SanitizeName(serviceName)
	m := &PrometheusMetrics{
		serviceName: prefix,
	}

	m.processedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_processed_total", prefix),
			Help: fmt.Sprintf("Total processed items by %s", serviceName),
		},
		[]string{"status", "type"},
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_errors_total", prefix),
			Help: fmt.Sprintf("Total errors in %s", serviceName),
		},
		[]string{"error_type", "operation"},
	)

	m.durationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    fmt.Sprintf("%s_duration_seconds", prefix),
			Help:    fmt.Sprintf("Operation duration in %s", serviceName),
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// 1KB .. 1GB; installers sit in the 10MB-100MB range
	m.fileSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    fmt.Sprintf("%s_file_size_bytes", prefix),
			Help:    fmt.Sprintf("File sizes processed by %s", serviceName),
			Buckets: prometheus.ExponentialBuckets(1024, 10, 7),
		},
		[]string{"file_type"},
	)

	m.inProgress = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_in_progress", prefix),
			Help: fmt.Sprintf("Operations in progress in %s", serviceName),
		},
		[]string{"operation"},
	)

	reg.MustRegister(
		m.processedTotal,
		m.errorsTotal,
		m.durationSeconds,
		m.fileSizeBytes,
		m.inProgress,
	)

	return m
}

// SanitizeName turns an arbitrary component name into a valid metric prefix.
func SanitizeName(name string) string {
	return invalidNameChars.ReplaceAllString(name, "_")
}

// RecordSuccess increments {serviceName}_processed_total{status="success"}.
func (m *PrometheusMetrics) RecordSuccess(operationType string) {
	m.processedTotal.WithLabelValues("success", operationType).Inc()
}

// RecordError increments both the processed counter (status="error") and the
// detailed error counter.
//
// Parameters:
//   - operationType: The operation that failed, e.g. "retrieve" or "upload"
//   - errorType: A low-cardinality classification such as the domain error code
//
// Example:
//
//	metrics.RecordError("retrieve", "UPSTREAM_UNAVAILABLE")
func (m *PrometheusMetrics) RecordError(operationType string, errorType string) {
	m.processedTotal.WithLabelValues("error", operationType).Inc()
	m.errorsTotal.WithLabelValues(errorType, operationType).Inc()
}

// RecordDuration records the duration of an operation in seconds.
//
// Parameters:
//   - operation: The operation being timed
//   - duration: Elapsed time in seconds, typically time.Since(start).Seconds()
func (m *PrometheusMetrics) RecordDuration(operation string, duration float64) {
	m.durationSeconds.WithLabelValues(operation).Observe(duration)
}

// RecordFileSize records the size of a payload in bytes.
//
// Parameters:
//   - fileType: What the payload is, e.g. "artifact" or "upload"
//   - bytes: Payload size
func (m *PrometheusMetrics) RecordFileSize(fileType string, bytes int64) {
	m.fileSizeBytes.WithLabelValues(fileType).Observe(float64(bytes))
}

// StartOperation increments the in-progress gauge for an operation.
//
//	metrics.StartOperation("retrieve")
//	defer metrics.EndOperation("retrieve")
func (m *PrometheusMetrics) StartOperation(operation string) {
	m.inProgress.WithLabelValues(operation).Inc()
}

// EndOperation decrements the in-progress gauge for an operation.
func (m *PrometheusMetrics) EndOperation(operation string) {
	m.inProgress.WithLabelValues(operation).Dec()
}

// Discard is a Metrics implementation that records nothing. It backs
// components whose metrics were switched off in configuration.
type Discard struct{}

func (Discard) RecordSuccess(string)           {}
func (Discard) RecordError(string, string)     {}
func (Discard) RecordDuration(string, float64) {}
func (Discard) RecordFileSize(string, int64)   {}
func (Discard) StartOperation(string)          {}
func (Discard) EndOperation(string)            {}
