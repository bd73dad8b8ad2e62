package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"runtime/debug"
	"time"

	"letreviewer/shared/config"
	"letreviewer/shared/observability"
	"letreviewer/shared/observability/types"

	"github.com/google/uuid"
)

// LoggingMiddleware logs the start and outcome of every request.
func LoggingMiddleware(provider observability.Provider) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (Response, error) {
			workerName, _ := ctx.Value(types.WorkerKey).(string)
			platform, _ := ctx.Value(types.PlatformKey).(string)

			log := provider.Logger("handler").WithFields(types.Fields{
				"request_id": req.ID,
				"type":       req.Type,
				"source":     req.Source,
				"worker":     workerName,
				"platform":   platform,
			})

			log.Info(ctx, "Processing request", types.Fields{
				"payload_size": len(req.Payload),
			})

			start := time.Now()
			resp, err := next(ctx, req)
			elapsed := time.Since(start)

			switch {
			case err != nil:
				log.Error(ctx, "Request failed with error", err, types.Fields{
					"duration_ms": elapsed.Milliseconds(),
				})
			case !resp.Success && resp.Error != nil:
				log.Warn(ctx, "Request completed with failure", types.Fields{
					"error_code":  resp.Error.Code,
					"error_msg":   resp.Error.Message,
					"duration_ms": elapsed.Milliseconds(),
				})
			default:
				fields := types.Fields{"duration_ms": elapsed.Milliseconds()}
				if resp.Raw != nil {
					fields["raw_bytes"] = len(resp.Raw.Body)
				}
				log.Info(ctx, "Request completed successfully", fields)
			}

			resp.Duration = elapsed
			return resp, err
		}
	}
}

// MetricsMiddleware records outcome counters, duration and in-flight requests
// per worker.
func MetricsMiddleware(provider observability.Provider) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (Response, error) {
			m := provider.Metrics("handler")

			workerName, _ := ctx.Value(types.WorkerKey).(string)
			if workerName == "" {
				workerName = "unknown"
			}

			m.StartOperation(workerName)
			defer m.EndOperation(workerName)

			start := time.Now()
			resp, err := next(ctx, req)
			m.RecordDuration(workerName, time.Since(start).Seconds())

			switch {
			case err != nil:
				m.RecordError(workerName, "processing_error")
			case !resp.Success:
				code := "unknown_error"
				if resp.Error != nil {
					code = resp.Error.Code
				}
				m.RecordError(workerName, code)
			default:
				m.RecordSuccess(workerName)
				if resp.Raw != nil {
					m.RecordFileSize(workerName, int64(len(resp.Raw.Body)))
				}
			}

			return resp, err
		}
	}
}

// RecoveryMiddleware turns a panic inside the chain into an INTERNAL_ERROR
// response. It must be the outermost middleware.
func RecoveryMiddleware(provider observability.Provider) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (resp Response, err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}

				provider.Logger("handler").Error(ctx, "Panic recovered", fmt.Errorf("%v", r), types.Fields{
					"request_id": req.ID,
					"worker":     ctx.Value(types.WorkerKey),
					"stack":      string(debug.Stack()),
				})
				provider.Metrics("handler").RecordError("panic", "panic_recovered")

				// panic details stay in the logs
				resp = NewErrorResponse(req.ID, "INTERNAL_ERROR", "An internal error occurred", "")
				err = fmt.Errorf("panic recovered: %v", r)
			}()

			return next(ctx, req)
		}
	}
}

// TracingMiddleware attaches a trace ID (propagated from the request metadata
// when present) and a fresh span ID to the context and the response.
func TracingMiddleware() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (Response, error) {
			traceID := extractTraceID(req)
			if traceID == "" {
				traceID = uuid.New().String()
			}
			spanID := uuid.New().String()

			ctx = context.WithValue(ctx, types.TraceIDKey, traceID)
			ctx = context.WithValue(ctx, types.SpanIDKey, spanID)

			if req.Metadata == nil {
				req.Metadata = make(map[string]string)
			}
			req.Metadata["trace_id"] = traceID
			req.Metadata["span_id"] = spanID

			resp, err := next(ctx, req)

			if resp.Metadata == nil {
				resp.Metadata = make(map[string]string)
			}
			resp.Metadata["trace_id"] = traceID
			resp.Metadata["span_id"] = spanID

			return resp, err
		}
	}
}

// TimeoutMiddleware bounds the rest of the chain by timeout. When the deadline
// passes first a TIMEOUT response is returned; the inner call sees a cancelled
// context and is expected to unwind on its own.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (Response, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			type result struct {
				resp Response
				err  error
			}
			done := make(chan result, 1)

			go func() {
				resp, err := next(ctx, req)
				done <- result{resp, err}
			}()

			select {
			case res := <-done:
				return res.resp, res.err
			case <-ctx.Done():
				return NewErrorResponse(
					req.ID,
					"TIMEOUT",
					"Request processing timed out",
					fmt.Sprintf("Exceeded timeout of %v", timeout),
				), ctx.Err()
			}
		}
	}
}

// RetryMiddleware re-runs the chain on retryable failures with exponential
// backoff, up to cfg.MaxAttempts extra attempts.
func RetryMiddleware(cfg *config.RetryConfig) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (Response, error) {
			var lastResp Response
			var lastErr error

			for attempt := 0; attempt <= cfg.MaxAttempts; attempt++ {
				resp, err := next(ctx, req)
				if err == nil && resp.Success {
					return resp, nil
				}
				if !isRetryable(resp, err) {
					return resp, err
				}

				lastResp, lastErr = resp, err

				if attempt == cfg.MaxAttempts {
					break
				}

				select {
				case <-ctx.Done():
					return NewErrorResponse(req.ID, "CANCELLED", "Request cancelled during retry", ""), ctx.Err()
				case <-time.After(calculateBackoff(attempt, cfg)):
				}
			}

			if lastErr != nil {
				return lastResp, fmt.Errorf("max retries (%d) exceeded: %w", cfg.MaxAttempts, lastErr)
			}
			if lastResp.Error != nil {
				lastResp.Error.Details = fmt.Sprintf("Failed after %d retries", cfg.MaxAttempts)
			}
			return lastResp, nil
		}
	}
}

// ValidationMiddleware fills in a missing ID and timestamp and rejects
// requests without a type, without a JSON payload or with a payload larger
// than maxSize (0 disables the size check).
func ValidationMiddleware(maxSize int64) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (Response, error) {
			if req.ID == "" {
				req.ID = uuid.New().String()
			}
			if req.Timestamp.IsZero() {
				req.Timestamp = time.Now().UTC()
			}

			if req.Type == "" {
				return NewErrorResponse(req.ID, "VALIDATION_ERROR", "Request type is required", "Missing 'type' field in request"), nil
			}
			if len(req.Payload) == 0 {
				return NewErrorResponse(req.ID, "VALIDATION_ERROR", "Request payload is required", "Empty payload"), nil
			}
			if maxSize > 0 && int64(len(req.Payload)) > maxSize {
				return NewErrorResponse(
					req.ID,
					"PAYLOAD_TOO_LARGE",
					"Request payload is too large",
					fmt.Sprintf("%d bytes exceeds the limit of %d", len(req.Payload), maxSize),
				), nil
			}
			if !json.Valid(req.Payload) {
				return NewErrorResponse(req.ID, "VALIDATION_ERROR", "Invalid JSON payload", "Payload must be valid JSON"), nil
			}

			if req.Metadata == nil {
				req.Metadata = make(map[string]string)
			}
			req.Metadata["validated_at"] = time.Now().UTC().Format(time.RFC3339)

			return next(ctx, req)
		}
	}
}

func isRetryable(resp Response, err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if resp.Error != nil {
		return resp.Error.Retryable || isRetryableError(resp.Error.Code)
	}
	return err != nil
}

func calculateBackoff(attempt int, cfg *config.RetryConfig) time.Duration {
	backoff := float64(cfg.InitialBackoff) * math.Pow(cfg.BackoffMultiplier, float64(attempt))
	if backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}
	return time.Duration(backoff)
}

var traceHeaders = []string{
	"trace_id",
	"x-trace-id",
	"x-b3-traceid",
	"x-request-id",
	"x-amzn-trace-id",
	"correlation-id",
}

func extractTraceID(req Request) string {
	for _, key := range traceHeaders {
		if val := req.Metadata[key]; val != "" {
			return val
		}
	}
	return ""
}
