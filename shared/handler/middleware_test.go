package handler

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"letreviewer/shared/config"
	"letreviewer/shared/observability/mocks"
	"letreviewer/shared/observability/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTimeoutMiddleware(t *testing.T) {
	middleware := TimeoutMiddleware(100 * time.Millisecond)

	t.Run("success within timeout", func(t *testing.T) {
		h := middleware(func(ctx context.Context, req Request) (Response, error) {
			return NewSuccessResponse(req.ID, nil)
		})

		resp, err := h(context.Background(), Request{ID: "test-123"})
		assert.NoError(t, err)
		assert.True(t, resp.Success)
	})

	t.Run("deadline cancels inner context", func(t *testing.T) {
		h := middleware(func(ctx context.Context, req Request) (Response, error) {
			select {
			case <-ctx.Done():
				return Response{}, ctx.Err()
			case <-time.After(time.Second):
				return NewSuccessResponse(req.ID, nil)
			}
		})

		resp, err := h(context.Background(), Request{ID: "test-123"})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "TIMEOUT", resp.Error.Code)
	})
}

func TestLoggingMiddleware(t *testing.T) {
	logger := new(mocks.MockLogger)
	provider := new(mocks.MockProvider)
	provider.On("Logger", "handler").Return(logger)

	logger.On("WithFields", types.Fields{
		"request_id": "req-1",
		"type":       "download",
		"source":     "http",
		"worker":     "retriever",
		"platform":   "http",
	}).Return(logger)
	logger.On("Info", mock.Anything, "Processing request", types.Fields{"payload_size": 2}).Once()
	logger.On("Info", mock.Anything, "Request completed successfully", mock.MatchedBy(func(f types.Fields) bool {
		return f["raw_bytes"] == 4
	})).Once()

	h := LoggingMiddleware(provider)(func(ctx context.Context, req Request) (Response, error) {
		return NewRawResponse(req.ID, &RawBody{Body: []byte("data")}), nil
	})

	ctx := context.WithValue(context.Background(), types.WorkerKey, "retriever")
	ctx = context.WithValue(ctx, types.PlatformKey, "http")

	resp, err := h(ctx, Request{ID: "req-1", Type: "download", Source: "http", Payload: json.RawMessage(`{}`)})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	logger.AssertExpectations(t)
}

func TestLoggingMiddleware_Failure(t *testing.T) {
	logger := mocks.NewQuietLogger()
	provider := new(mocks.MockProvider)
	provider.On("Logger", "handler").Return(logger)

	h := LoggingMiddleware(provider)(func(ctx context.Context, req Request) (Response, error) {
		return NewErrorResponse(req.ID, "UPSTREAM_UNAVAILABLE", "upstream returned 503", ""), nil
	})

	_, err := h(context.Background(), Request{ID: "req-2"})
	require.NoError(t, err)
	logger.AssertCalled(t, "Warn", mock.Anything, "Request completed with failure", mock.MatchedBy(func(f types.Fields) bool {
		return f["error_code"] == "UPSTREAM_UNAVAILABLE"
	}))
}

func TestMetricsMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		resp   Response
		err    error
		assert func(t *testing.T, m *mocks.MockMetrics)
	}{
		{
			name: "raw success records size",
			resp: NewRawResponse("1", &RawBody{Body: make([]byte, 10)}),
			assert: func(t *testing.T, m *mocks.MockMetrics) {
				m.AssertCalled(t, "RecordSuccess", "retriever")
				m.AssertCalled(t, "RecordFileSize", "retriever", int64(10))
			},
		},
		{
			name: "error response records code",
			resp: NewErrorResponse("1", "CONFIRMATION_REQUIRED", "no token", ""),
			assert: func(t *testing.T, m *mocks.MockMetrics) {
				m.AssertCalled(t, "RecordError", "retriever", "CONFIRMATION_REQUIRED")
			},
		},
		{
			name: "processing error",
			err:  errors.New("boom"),
			assert: func(t *testing.T, m *mocks.MockMetrics) {
				m.AssertCalled(t, "RecordError", "retriever", "processing_error")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mocks.NewQuietMetrics()
			provider := new(mocks.MockProvider)
			provider.On("Metrics", "handler").Return(m)

			h := MetricsMiddleware(provider)(func(ctx context.Context, req Request) (Response, error) {
				return tt.resp, tt.err
			})

			ctx := context.WithValue(context.Background(), types.WorkerKey, "retriever")
			_, _ = h(ctx, Request{ID: "1"})

			m.AssertCalled(t, "StartOperation", "retriever")
			m.AssertCalled(t, "EndOperation", "retriever")
			m.AssertCalled(t, "RecordDuration", "retriever", mock.AnythingOfType("float64"))
			tt.assert(t, m)
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	provider := mocks.NewQuietProvider()

	h := RecoveryMiddleware(provider)(func(ctx context.Context, req Request) (Response, error) {
		panic("nil map")
	})

	resp, err := h(context.Background(), Request{ID: "req-3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic recovered")
	assert.False(t, resp.Success)
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
	assert.Empty(t, resp.Error.Details)
}

func TestTracingMiddleware(t *testing.T) {
	t.Run("propagates incoming trace id", func(t *testing.T) {
		var seen string
		h := TracingMiddleware()(func(ctx context.Context, req Request) (Response, error) {
			seen, _ = ctx.Value(types.TraceIDKey).(string)
			return NewSuccessResponse(req.ID, nil)
		})

		resp, err := h(context.Background(), Request{ID: "1", Metadata: map[string]string{"x-request-id": "abc"}})
		require.NoError(t, err)
		assert.Equal(t, "abc", seen)
		assert.Equal(t, "abc", resp.Metadata["trace_id"])
		assert.NotEmpty(t, resp.Metadata["span_id"])
	})

	t.Run("generates trace id with nil metadata", func(t *testing.T) {
		h := TracingMiddleware()(func(ctx context.Context, req Request) (Response, error) {
			return Response{}, nil
		})

		resp, err := h(context.Background(), Request{ID: "1"})
		require.NoError(t, err)
		assert.Len(t, resp.Metadata["trace_id"], 36)
	})
}

func TestValidationMiddleware(t *testing.T) {
	passthrough := func(ctx context.Context, req Request) (Response, error) {
		assert.NotEmpty(t, req.ID)
		assert.NotEmpty(t, req.Metadata["validated_at"])
		return NewSuccessResponse(req.ID, nil)
	}

	tests := []struct {
		name string
		req  Request
		code string
	}{
		{"missing type", Request{Payload: json.RawMessage(`{}`)}, "VALIDATION_ERROR"},
		{"missing payload", Request{Type: "download"}, "VALIDATION_ERROR"},
		{"invalid json", Request{Type: "download", Payload: json.RawMessage(`{`)}, "VALIDATION_ERROR"},
		{"too large", Request{Type: "upload", Payload: json.RawMessage(`"` + strings.Repeat("a", 64) + `"`)}, "PAYLOAD_TOO_LARGE"},
		{"valid", Request{Type: "download", Payload: json.RawMessage(`{}`)}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ValidationMiddleware(32)(passthrough)(context.Background(), tt.req)
			require.NoError(t, err)
			if tt.code == "" {
				assert.True(t, resp.Success)
				return
			}
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestRetryMiddleware(t *testing.T) {
	cfg := &config.RetryConfig{
		MaxAttempts:       2,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2,
	}

	t.Run("retries retryable codes until success", func(t *testing.T) {
		calls := 0
		h := RetryMiddleware(cfg)(func(ctx context.Context, req Request) (Response, error) {
			calls++
			if calls < 3 {
				return NewErrorResponse(req.ID, "TRANSPORT_FAILURE", "reset", ""), nil
			}
			return NewSuccessResponse(req.ID, nil)
		})

		resp, err := h(context.Background(), Request{ID: "1"})
		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Equal(t, 3, calls)
	})

	t.Run("does not retry permanent failures", func(t *testing.T) {
		calls := 0
		h := RetryMiddleware(cfg)(func(ctx context.Context, req Request) (Response, error) {
			calls++
			return NewErrorResponse(req.ID, "CONFIRMATION_REQUIRED", "no token", ""), nil
		})

		resp, _ := h(context.Background(), Request{ID: "1"})
		assert.False(t, resp.Success)
		assert.Equal(t, 1, calls)
	})

	t.Run("reports exhaustion", func(t *testing.T) {
		h := RetryMiddleware(cfg)(func(ctx context.Context, req Request) (Response, error) {
			return NewErrorResponse(req.ID, "UPSTREAM_UNAVAILABLE", "503", ""), nil
		})

		resp, err := h(context.Background(), Request{ID: "1"})
		require.NoError(t, err)
		assert.Equal(t, "Failed after 2 retries", resp.Error.Details)
	})

	t.Run("wraps the last error", func(t *testing.T) {
		h := RetryMiddleware(cfg)(func(ctx context.Context, req Request) (Response, error) {
			return Response{}, errors.New("connection refused")
		})

		_, err := h(context.Background(), Request{ID: "1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max retries (2) exceeded")
	})
}

func TestCalculateBackoff(t *testing.T) {
	cfg := &config.RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second, BackoffMultiplier: 2}

	assert.Equal(t, 100*time.Millisecond, calculateBackoff(0, cfg))
	assert.Equal(t, 400*time.Millisecond, calculateBackoff(2, cfg))
	assert.Equal(t, time.Second, calculateBackoff(10, cfg))
}
