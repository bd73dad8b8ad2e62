package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"letreviewer/shared/observability/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"error", ErrorLevel},
		{"unknown", InfoLevel},
		{"", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestLogLevel_String(t *testing.T) {
	assert.Equal(t, "debug", DebugLevel.String())
	assert.Equal(t, "error", ErrorLevel.String())
	assert.Equal(t, "unknown", LogLevel(99).String())
}

func TestLokiLogger_LogLevels(t *testing.T) {
	tests := []struct {
		name      string
		logLevel  string
		logMethod func(*LokiLogger, context.Context)
		shouldLog bool
	}{
		{
			name:      "debug level logs debug",
			logLevel:  "debug",
			logMethod: func(l *LokiLogger, ctx context.Context) { l.Debug(ctx, "test", nil) },
			shouldLog: true,
		},
		{
			name:      "info level skips debug",
			logLevel:  "info",
			logMethod: func(l *LokiLogger, ctx context.Context) { l.Debug(ctx, "test", nil) },
			shouldLog: false,
		},
		{
			name:      "error level skips warn",
			logLevel:  "error",
			logMethod: func(l *LokiLogger, ctx context.Context) { l.Warn(ctx, "test", nil) },
			shouldLog: false,
		},
		{
			name:     "error level logs error",
			logLevel: "error",
			logMethod: func(l *LokiLogger, ctx context.Context) {
				l.Error(ctx, "test", errors.New("error"), nil)
			},
			shouldLog: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New("test", "test", tt.logLevel, &buf, nil)

			tt.logMethod(logger, context.Background())

			if tt.shouldLog {
				assert.NotEmpty(t, buf.String())
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestLokiLogger_StructuredFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New("letreviewer.retriever", "prod", "info", &buf, types.Fields{
		"version": "1.0.0",
	})

	ctx := context.WithValue(context.Background(), types.RequestIDKey, "req-123")
	ctx = context.WithValue(ctx, types.TraceIDKey, "trace-456")
	ctx = context.WithValue(ctx, types.ResourceKey, "default")

	logger.Info(ctx, "Artifact retrieved", types.Fields{
		"attempts": 2,
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "letreviewer.retriever", entry["service"])
	assert.Equal(t, "prod", entry["env"])
	assert.Equal(t, "Artifact retrieved", entry["message"])
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, "trace-456", entry["trace_id"])
	assert.Equal(t, "default", entry["resource"])
	assert.Equal(t, "1.0.0", entry["version"])
	assert.Equal(t, float64(2), entry["attempts"])
	assert.NotEmpty(t, entry["timestamp"])
	assert.NotEmpty(t, entry["hostname"])
}

func TestLokiLogger_Error(t *testing.T) {
	var buf bytes.Buffer
	logger := New("test", "test", "error", &buf, nil)

	logger.Error(context.Background(), "Operation failed", errors.New("something went wrong"), types.Fields{
		"operation": "retrieve",
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "something went wrong", entry["error"])
	assert.Equal(t, "*errors.errorString", entry["error_type"])
	assert.Equal(t, "retrieve", entry["operation"])
}

func TestLokiLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New("test", "test", "info", &buf, types.Fields{"component": "handler"})

	child := logger.WithFields(types.Fields{"request_id": "req-123"})
	child.Info(context.Background(), "Test", types.Fields{"extra": "field"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "handler", entry["component"])
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, "field", entry["extra"])

	// the parent is unaffected
	buf.Reset()
	logger.Info(context.Background(), "Parent", nil)
	var parent map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parent))
	assert.NotContains(t, parent, "request_id")
}

func TestLokiLogger_ConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	logger := New("test", "test", "info", &buf, nil)
	child := logger.WithFields(types.Fields{"child": true})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			logger.Info(context.Background(), "parent", nil)
		}()
		go func() {
			defer wg.Done()
			child.Info(context.Background(), "child", nil)
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 100)
	for _, line := range lines {
		assert.True(t, json.Valid([]byte(line)), line)
	}
}
