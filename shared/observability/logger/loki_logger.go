// Package logger provides structured logging implementation optimized for Loki.
// It outputs JSON-formatted logs with consistent field structure for efficient
// querying and aggregation in log management systems.
package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"letreviewer/shared/observability/types"
)

// LogLevel represents the severity level of a log message.
type LogLevel int

// Log level constants ordered by severity (lowest to highest).
const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// ParseLevel converts a string representation to a LogLevel.
// Unrecognized levels default to InfoLevel.
//
// Valid levels:
//   - "debug": DebugLevel
//   - "info": InfoLevel
//   - "warn": WarnLevel
//   - "error": ErrorLevel
//
// Parameters:
//   - level: String representation of the log level
//
// Returns:
//   - The corresponding LogLevel, InfoLevel if unrecognized
func ParseLevel(level string) LogLevel {
	switch level {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// String returns the string representation of a LogLevel.
func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	default:
		return "unknown"
	}
}

// contextFields lists the context keys copied into every entry when present.
var contextFields = []types.ContextKey{
	types.TraceIDKey,
	types.RequestIDKey,
	types.ResourceKey,
}

// LokiLogger implements the Logger interface with JSON output optimized for Loki.
// Each entry carries timestamp, level, service, env, hostname and message.
type LokiLogger struct {
	// mu serializes writes so concurrent entries never interleave
	mu               *sync.Mutex
	output           io.Writer
	serviceName      string
	environment      string
	hostname         string
	minLevel         LogLevel
	persistentFields types.Fields
}

// New creates a new LokiLogger. The system hostname is detected once and
// included in every entry; a nil output defaults to os.Stdout.
//
// Parameters:
//   - serviceName: Name reported in the "service" field, usually "{service}.{component}"
//   - environment: Deployment environment (e.g., "production", "local")
//   - logLevel: Minimum level written ("debug", "info", "warn", "error")
//   - output: Destination of the JSON lines (os.Stdout if nil)
//   - additionalFields: Fields included in every entry
//
// Returns:
//   - A configured LokiLogger
//
// Example:
//
//	logger := New("letreviewer.retriever", "production", "info", os.Stdout,
//		types.Fields{"version": "1.0.0"})
func New(serviceName, environment, logLevel string, output io.Writer, additionalFields types.Fields) *LokiLogger {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	if output == nil {
		output = os.Stdout
	}

	return &LokiLogger{
		mu:               &sync.Mutex{},
		output:           output,
		serviceName:      serviceName,
		environment:      environment,
		hostname:         hostname,
		minLevel:         ParseLevel(logLevel),
		persistentFields: additionalFields,
	}
}

// Info logs an informational message at INFO level.
// The trace, request and resource IDs found in ctx are added to the entry.
//
// Parameters:
//   - ctx: Context carrying trace and request values
//   - msg: The log message
//   - fields: Structured fields for this entry only
func (l *LokiLogger) Info(ctx context.Context, msg string, fields types.Fields) {
	if l.minLevel > InfoLevel {
		return
	}
	l.log(ctx, InfoLevel, msg, nil, fields)
}

// Error logs an error message at ERROR level. Both the error text and its
// dynamic type are recorded.
//
// Parameters:
//   - ctx: Context carrying trace and request values
//   - msg: What was being attempted when the error happened
//   - err: The error to record, may be nil
//   - fields: Structured fields for this entry only
func (l *LokiLogger) Error(ctx context.Context, msg string, err error, fields types.Fields) {
	if l.minLevel > ErrorLevel {
		return
	}
	l.log(ctx, ErrorLevel, msg, err, fields)
}

// Warn logs a warning message at WARN level.
func (l *LokiLogger) Warn(ctx context.Context, msg string, fields types.Fields) {
	if l.minLevel > WarnLevel {
		return
	}
	l.log(ctx, WarnLevel, msg, nil, fields)
}

// Debug logs a debug message at DEBUG level.
func (l *LokiLogger) Debug(ctx context.Context, msg string, fields types.Fields) {
	if l.minLevel > DebugLevel {
		return
	}
	l.log(ctx, DebugLevel, msg, nil, fields)
}

// WithFields returns a child logger sharing output and configuration, with
// fields merged over the parent's persistent fields.
//
// Parameters:
//   - fields: Fields added to every entry of the child logger
//
// Returns:
//   - A new Logger; the parent is left unchanged
//
// Example:
//
//	requestLogger := logger.WithFields(types.Fields{"request_id": "abc-123"})
//	requestLogger.Info(ctx, "Processing request", nil)
func (l *LokiLogger) WithFields(fields types.Fields) types.Logger {
	newFields := make(types.Fields, len(l.persistentFields)+len(fields))
	for k, v := range l.persistentFields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}

	return &LokiLogger{
		mu:               l.mu,
		output:           l.output,
		serviceName:      l.serviceName,
		environment:      l.environment,
		hostname:         l.hostname,
		minLevel:         l.minLevel,
		persistentFields: newFields,
	}
}

// log merges standard fields, context values, persistent fields and the
// call-specific fields (in that order of precedence, last wins) and writes
// a single JSON line.
func (l *LokiLogger) log(ctx context.Context, level LogLevel, msg string, err error, fields types.Fields) {
	entry := make(types.Fields, 8+len(l.persistentFields)+len(fields))

	entry["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["service"] = l.serviceName
	entry["env"] = l.environment
	entry["hostname"] = l.hostname
	entry["message"] = msg

	if ctx != nil {
		for _, key := range contextFields {
			if v, ok := ctx.Value(key).(string); ok && v != "" {
				entry[string(key)] = v
			}
		}
	}

	if err != nil {
		entry["error"] = err.Error()
		entry["error_type"] = fmt.Sprintf("%T", err)
	}

	for k, v := range l.persistentFields {
		entry[k] = v
	}
	for k, v := range fields {
		entry[k] = v
	}

	jsonBytes, marshalErr := json.Marshal(entry)
	if marshalErr != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Write(append(jsonBytes, '\n'))
}
