package platforms

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"letreviewer/shared/handler"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/google/uuid"
)

// LambdaAdapter serves a handler behind an API Gateway REST proxy
// integration. Raw bodies of a binary media type, or that are not valid
// UTF-8, are returned base64 encoded.
type LambdaAdapter struct {
	handler      *handler.Handler
	style        ErrorStyle
	binaryTypes  map[string]bool
	binaryAlways bool
}

// LambdaOption customises a LambdaAdapter.
type LambdaOption func(*LambdaAdapter)

// WithBinaryMediaTypes lists the media types API Gateway treats as binary.
// "*/*" marks every raw body as binary.
func WithBinaryMediaTypes(mediaTypes ...string) LambdaOption {
	return func(a *LambdaAdapter) {
		a.binaryTypes = make(map[string]bool, len(mediaTypes))
		for _, mt := range mediaTypes {
			mt = strings.ToLower(strings.TrimSpace(mt))
			if mt == "*/*" {
				a.binaryAlways = true
			}
			a.binaryTypes[mt] = true
		}
	}
}

// NewLambdaAdapter creates a Lambda adapter for h.
func NewLambdaAdapter(h *handler.Handler, style ErrorStyle, opts ...LambdaOption) *LambdaAdapter {
	a := &LambdaAdapter{handler: h, style: style}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start hands control to the Lambda runtime. It does not return.
func (a *LambdaAdapter) Start() {
	lambda.Start(a.Handle)
}

// Handle converts one proxy event into a handler request and back.
func (a *LambdaAdapter) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if a.handler.Config().EnableHealth && isHealthCheck(event.Path) {
		return a.handleHealth(ctx), nil
	}

	requestID := headerValue(event.Headers, "X-Request-ID")
	if requestID == "" {
		requestID = event.RequestContext.RequestID
	}
	if requestID == "" {
		requestID = uuid.New().String()
	}

	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return a.toProxyResponse(handler.NewErrorResponse(requestID, "INVALID_REQUEST", "Malformed base64 body", err.Error()), nil), nil
		}
		body = decoded
	}

	if maxSize := a.handler.Config().MaxRequestSize; maxSize > 0 && int64(len(body)) > maxSize {
		return a.toProxyResponse(handler.NewErrorResponse(
			requestID,
			"PAYLOAD_TOO_LARGE",
			"Request body is too large",
			fmt.Sprintf("%d bytes exceeds the limit of %d", len(body), maxSize),
		), nil), nil
	}

	query := url.Values{}
	for key, value := range event.QueryStringParameters {
		query.Set(key, value)
	}

	payload, err := buildPayload(event.HTTPMethod, headerValue(event.Headers, "Content-Type"), query, body)
	if err != nil {
		return a.toProxyResponse(handler.NewErrorResponse(requestID, "INVALID_REQUEST", "Malformed request body", err.Error()), nil), nil
	}

	reqType := headerValue(event.Headers, "X-Request-Type")
	if reqType == "" {
		reqType = requestTypeFromPath(event.HTTPMethod, event.Path)
	}

	req := handler.Request{
		ID:        requestID,
		Source:    "lambda",
		Type:      reqType,
		Payload:   payload,
		Metadata:  lambdaMetadata(event),
		Timestamp: time.Now().UTC(),
	}

	resp, err := a.handler.Handle(ctx, req)
	if resp.ID == "" {
		resp.ID = requestID
	}
	return a.toProxyResponse(resp, err), nil
}

func (a *LambdaAdapter) handleHealth(ctx context.Context) events.APIGatewayProxyResponse {
	status := http.StatusOK
	body := map[string]interface{}{
		"status": "healthy",
		"worker": a.handler.Worker().Name(),
		"time":   time.Now().UTC(),
	}
	if err := a.handler.Health(ctx); err != nil {
		status = http.StatusServiceUnavailable
		body = map[string]interface{}{"status": "unhealthy", "error": err.Error()}
	}

	data, _ := json.Marshal(body)
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(data),
	}
}

func (a *LambdaAdapter) toProxyResponse(resp handler.Response, err error) events.APIGatewayProxyResponse {
	out := encodeResponse(resp, err, a.style)

	proxy := events.APIGatewayProxyResponse{
		StatusCode: out.status,
		Headers:    out.headers,
	}
	if err == nil && resp.Success && resp.Raw != nil && a.isBinary(resp.Raw.ContentType, out.body) {
		proxy.Body = base64.StdEncoding.EncodeToString(out.body)
		proxy.IsBase64Encoded = true
		return proxy
	}
	proxy.Body = string(out.body)
	return proxy
}

// isBinary reports whether a raw body has to travel base64 encoded.
func (a *LambdaAdapter) isBinary(contentType string, body []byte) bool {
	if a.binaryAlways || !utf8.Valid(body) {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return a.binaryTypes[mediaType]
}

// headerValue looks up a header case-insensitively; API Gateway passes header
// names through as the client sent them.
func headerValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for key, v := range headers {
		if strings.EqualFold(key, name) {
			return v
		}
	}
	return ""
}

func lambdaMetadata(event events.APIGatewayProxyRequest) map[string]string {
	metadata := map[string]string{
		"http_method":       event.HTTPMethod,
		"http_path":         event.Path,
		"apigw_request_id":  event.RequestContext.RequestID,
		"apigw_stage":       event.RequestContext.Stage,
		"header_user_agent": headerValue(event.Headers, "User-Agent"),
	}
	if ip := event.RequestContext.Identity.SourceIP; ip != "" {
		metadata["header_x_forwarded_for"] = ip
	}
	if traceID := headerValue(event.Headers, "X-Amzn-Trace-Id"); traceID != "" {
		metadata["x-amzn-trace-id"] = traceID
	}
	for key, value := range event.QueryStringParameters {
		metadata["query_"+key] = value
	}
	return metadata
}
