package platforms

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"letreviewer/shared/handler"
	"letreviewer/shared/observability/types"

	"github.com/google/uuid"
)

// HTTPAdapter serves a handler over plain net/http. Health endpoints are
// answered directly unless the handler config disables them; every other
// allowed path goes through the handler chain.
type HTTPAdapter struct {
	handler     *handler.Handler
	style       ErrorStyle
	methods     map[string]bool
	paths       map[string]bool
	readTimeout time.Duration
}

// HTTPOption customises an HTTPAdapter.
type HTTPOption func(*HTTPAdapter)

// WithErrorStyle selects how failures are written.
func WithErrorStyle(style ErrorStyle) HTTPOption {
	return func(a *HTTPAdapter) { a.style = style }
}

// WithMethods restricts the accepted HTTP methods. Other methods get 405.
func WithMethods(methods ...string) HTTPOption {
	return func(a *HTTPAdapter) {
		a.methods = make(map[string]bool, len(methods))
		for _, m := range methods {
			a.methods[strings.ToUpper(m)] = true
		}
	}
}

// WithPaths restricts the routed paths. Other paths get 404.
func WithPaths(paths ...string) HTTPOption {
	return func(a *HTTPAdapter) {
		a.paths = make(map[string]bool, len(paths))
		for _, p := range paths {
			a.paths[p] = true
		}
	}
}

// WithReadTimeout bounds how long the server built by Server may spend
// reading one request, body included. Zero means no limit.
func WithReadTimeout(d time.Duration) HTTPOption {
	return func(a *HTTPAdapter) { a.readTimeout = d }
}

// NewHTTPAdapter creates a new HTTP adapter for h.
func NewHTTPAdapter(h *handler.Handler, opts ...HTTPOption) *HTTPAdapter {
	a := &HTTPAdapter{handler: h}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ServeHTTP implements http.Handler.
func (a *HTTPAdapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if a.handler.Config().EnableHealth && isHealthCheck(r.URL.Path) {
		a.handleHealth(w, r)
		return
	}

	requestID := extractRequestID(r.Header)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	if a.paths != nil && !a.paths[r.URL.Path] {
		a.write(r.Context(), w, handler.NewErrorResponse(requestID, "NOT_FOUND", "Not found", r.URL.Path), nil)
		return
	}
	if a.methods != nil && !a.methods[r.Method] {
		a.write(r.Context(), w, handler.NewErrorResponse(requestID, "METHOD_NOT_ALLOWED", "Method not allowed", r.Method), nil)
		return
	}

	body, err := a.readBody(w, r)
	if err != nil {
		code := "INVALID_REQUEST"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			code = "PAYLOAD_TOO_LARGE"
		}
		a.write(r.Context(), w, handler.NewErrorResponse(requestID, code, "Failed to read request body", err.Error()), nil)
		return
	}

	payload, err := buildPayload(r.Method, r.Header.Get("Content-Type"), r.URL.Query(), body)
	if err != nil {
		a.write(r.Context(), w, handler.NewErrorResponse(requestID, "INVALID_REQUEST", "Malformed request body", err.Error()), nil)
		return
	}

	req := handler.Request{
		ID:        requestID,
		Source:    "http",
		Type:      a.extractRequestType(r),
		Payload:   payload,
		Metadata:  extractMetadata(r),
		Timestamp: time.Now().UTC(),
	}

	resp, err := a.handler.Handle(r.Context(), req)
	if resp.ID == "" {
		resp.ID = requestID
	}
	a.write(r.Context(), w, resp, err)
}

func (a *HTTPAdapter) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := a.handler.Health(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "healthy",
		"worker": a.handler.Worker().Name(),
		"time":   time.Now().UTC(),
	})
}

func (a *HTTPAdapter) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer r.Body.Close()

	maxSize := a.handler.Config().MaxRequestSize
	if maxSize <= 0 {
		maxSize = 10 * 1024 * 1024
	}

	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxSize))
}

// extractRequestType prefers an explicit X-Request-Type header, then the last
// path segment.
func (a *HTTPAdapter) extractRequestType(r *http.Request) string {
	if reqType := r.Header.Get("X-Request-Type"); reqType != "" {
		return reqType
	}
	return requestTypeFromPath(r.Method, r.URL.Path)
}

func (a *HTTPAdapter) write(ctx context.Context, w http.ResponseWriter, resp handler.Response, err error) {
	out := encodeResponse(resp, err, a.style)

	for key, value := range out.headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(out.status)

	if _, wErr := w.Write(out.body); wErr != nil && a.handler.Observability() != nil {
		a.handler.Observability().Logger("http").Warn(ctx, "Failed to write response", types.Fields{
			"request_id": resp.ID,
			"error":      wErr.Error(),
		})
	}
}

var requestIDHeaders = []string{
	"X-Request-ID",
	"X-Correlation-ID",
	"Request-ID",
}

func extractRequestID(h http.Header) string {
	for _, key := range requestIDHeaders {
		if id := h.Get(key); id != "" {
			return id
		}
	}
	return ""
}

var metadataHeaders = []string{
	"Content-Type",
	"Accept",
	"User-Agent",
	"X-Forwarded-For",
	"X-Real-IP",
	"Authorization",
}

func extractMetadata(r *http.Request) map[string]string {
	metadata := map[string]string{
		"http_method": r.Method,
		"http_path":   r.URL.Path,
		"http_host":   r.Host,
	}

	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			metadata["query_"+key] = values[0]
		}
	}

	for _, header := range metadataHeaders {
		value := r.Header.Get(header)
		if value == "" {
			continue
		}
		if header == "Authorization" {
			value = redactAuthorization(value)
		}
		metadata["header_"+strings.ToLower(strings.ReplaceAll(header, "-", "_"))] = value
	}

	for _, header := range []string{"X-Trace-ID", "X-Amzn-Trace-Id"} {
		if traceID := r.Header.Get(header); traceID != "" {
			metadata[strings.ToLower(header)] = traceID
		}
	}

	return metadata
}

func redactAuthorization(value string) string {
	if strings.HasPrefix(value, "Bearer ") {
		return "Bearer [REDACTED]"
	}
	return "[REDACTED]"
}

// Server wraps the adapter in an http.Server with conservative header
// timeouts and the configured read timeout. The caller owns ListenAndServe
// and Shutdown.
func (a *HTTPAdapter) Server(addr string, mux *http.ServeMux) *http.Server {
	if mux == nil {
		mux = http.NewServeMux()
	}
	mux.Handle("/", a)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       a.readTimeout,
	}
}
