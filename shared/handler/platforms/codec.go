package platforms

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"letreviewer/shared/handler"
)

// ErrorStyle selects how failed responses are written.
type ErrorStyle int

const (
	// ErrorStyleEnvelope writes the full handler.Response as JSON.
	ErrorStyleEnvelope ErrorStyle = iota
	// ErrorStyleSimple writes {"error": "<message>"}. Every failure other than
	// a routing or client error is reported as 500, including handler timeouts.
	ErrorStyleSimple
)

var healthPaths = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/ready":   true,
	"/readyz":  true,
	"/live":    true,
	"/livez":   true,
}

func isHealthCheck(path string) bool {
	return healthPaths[path]
}

// requestTypeFromPath uses the last path segment, so /api/download becomes
// "download". An empty path falls back to the lower-cased method.
func requestTypeFromPath(method, path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return strings.ToLower(method)
	}
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

// buildPayload converts a transport body into the JSON payload handed to
// workers. Bodiless requests get their query parameters as a JSON object;
// form bodies become a handler.FormPayload; anything else passes through.
func buildPayload(method, contentType string, query url.Values, body []byte) (json.RawMessage, error) {
	if len(body) == 0 {
		if method == http.MethodGet || method == http.MethodHead || len(query) > 0 {
			return queryPayload(query)
		}
		return nil, nil
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return json.RawMessage(body), nil
	}

	switch mediaType {
	case "multipart/form-data":
		return multipartPayload(body, params["boundary"])
	case "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, fmt.Errorf("parse form: %w", err)
		}
		return json.Marshal(handler.FormPayload{Fields: firstValues(values)})
	default:
		return json.RawMessage(body), nil
	}
}

func queryPayload(query url.Values) (json.RawMessage, error) {
	return json.Marshal(firstValues(query))
}

func firstValues(values url.Values) map[string]string {
	out := make(map[string]string, len(values))
	for key, vals := range values {
		if len(vals) > 0 {
			out[key] = vals[0]
		}
	}
	return out
}

func multipartPayload(body []byte, boundary string) (json.RawMessage, error) {
	if boundary == "" {
		return nil, errors.New("multipart body without boundary")
	}

	payload := handler.FormPayload{Fields: make(map[string]string)}
	reader := multipart.NewReader(bytes.NewReader(body), boundary)

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read multipart: %w", err)
		}

		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return nil, fmt.Errorf("read part %q: %w", part.FormName(), err)
		}

		if part.FileName() == "" {
			payload.Fields[part.FormName()] = string(data)
			continue
		}

		ct := part.Header.Get("Content-Type")
		if ct == "" {
			ct = http.DetectContentType(data)
		}
		payload.Files = append(payload.Files, handler.FormFile{
			Field:       part.FormName(),
			Filename:    part.FileName(),
			ContentType: ct,
			Data:        data,
		})
	}

	return json.Marshal(payload)
}

// encoded is a transport-neutral rendering of a handler response.
type encoded struct {
	status  int
	headers map[string]string
	body    []byte
}

func encodeResponse(resp handler.Response, err error, style ErrorStyle) encoded {
	out := encoded{headers: map[string]string{"X-Request-ID": resp.ID}}
	for key, value := range resp.Metadata {
		out.headers[metadataHeader(key)] = value
	}

	if err == nil && resp.Success && resp.Raw != nil {
		for key, value := range resp.Raw.Headers {
			out.headers[key] = value
		}
		if resp.Raw.ContentType != "" {
			out.headers["Content-Type"] = resp.Raw.ContentType
		}
		out.headers["Content-Length"] = strconv.Itoa(len(resp.Raw.Body))
		out.status = http.StatusOK
		out.body = resp.Raw.Body
		return out
	}

	out.headers["Content-Type"] = "application/json"

	// a bare error without a response body is reported as an internal error
	if err != nil && resp.Error == nil {
		resp = handler.NewErrorResponse(resp.ID, "INTERNAL_ERROR", "Request processing failed", err.Error())
	}

	out.status = determineStatusCode(resp)
	if style == ErrorStyleSimple && out.status >= http.StatusInternalServerError {
		out.status = http.StatusInternalServerError
	}

	var body interface{} = resp
	if style == ErrorStyleSimple && !resp.Success {
		msg := "Request processing failed"
		if resp.Error != nil {
			msg = resp.Error.Message
		}
		body = map[string]string{"error": msg}
	}

	data, mErr := json.Marshal(body)
	if mErr != nil {
		out.status = http.StatusInternalServerError
		data = []byte(`{"error":"failed to encode response"}`)
	}
	out.body = data
	return out
}

// metadataHeader turns a metadata key such as trace_id into X-Trace-Id.
// Underscores are replaced since many proxies drop headers that carry them.
func metadataHeader(key string) string {
	key = strings.NewReplacer("_", "-", " ", "-").Replace(key)
	return http.CanonicalHeaderKey("X-" + key)
}

var statusByCode = map[string]int{
	"VALIDATION_ERROR":       http.StatusBadRequest,
	"INVALID_REQUEST":        http.StatusBadRequest,
	"NOT_FOUND":              http.StatusNotFound,
	"UNKNOWN_RESOURCE":       http.StatusNotFound,
	"METHOD_NOT_ALLOWED":     http.StatusMethodNotAllowed,
	"UNAUTHORIZED":           http.StatusUnauthorized,
	"FORBIDDEN":              http.StatusForbidden,
	"PAYLOAD_TOO_LARGE":      http.StatusRequestEntityTooLarge,
	"UNSUPPORTED_MEDIA_TYPE": http.StatusUnsupportedMediaType,
	"RATE_LIMITED":           http.StatusTooManyRequests,
	"TIMEOUT":                http.StatusGatewayTimeout,
	"SERVICE_UNAVAILABLE":    http.StatusServiceUnavailable,
}

// determineStatusCode maps a response to an HTTP status. Unknown error codes,
// including the retrieval failures, are 500.
func determineStatusCode(resp handler.Response) int {
	if resp.Success {
		return http.StatusOK
	}
	if resp.Error == nil {
		return http.StatusInternalServerError
	}
	if status, ok := statusByCode[resp.Error.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
