package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"letreviewer/shared/config"
	"letreviewer/shared/observability/types"
	"letreviewer/workers/retriever/internal/domain"
)

// ClientConfig holds HTTP client configuration
type ClientConfig struct {
	// Timeout bounds the whole exchange including the body read.
	Timeout time.Duration
	// MaxBodySize caps the response body; larger bodies fail with ArtifactTooLarge.
	MaxBodySize int64
	UserAgent   string
}

// DefaultConfig returns default HTTP client configuration
func DefaultConfig() ClientConfig {
	return ClientConfig{
		Timeout:     60 * time.Second,
		MaxBodySize: 200 * 1024 * 1024,
		UserAgent:   config.DefaultUserAgent,
	}
}

// ConfigFrom derives the client settings from the retriever configuration.
func ConfigFrom(cfg config.RetrieverConfig) ClientConfig {
	return ClientConfig{
		Timeout:     cfg.FetchTimeout,
		MaxBodySize: cfg.MaxArtifactSize,
		UserAgent:   cfg.UserAgent,
	}
}

// Client implements domain.HTTPClient
type Client struct {
	client  *http.Client
	config  ClientConfig
	logger  types.Logger
	metrics types.Metrics
}

var _ domain.HTTPClient = (*Client)(nil)

// NewClient creates a new HTTP client
func NewClient(cfg ClientConfig, logger types.Logger, metrics types.Metrics) *Client {
	defaults := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = defaults.MaxBodySize
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent
	}

	return &Client{
		client:  &http.Client{Timeout: cfg.Timeout},
		config:  cfg,
		logger:  logger,
		metrics: metrics,
	}
}

// Fetch performs a GET and reads the whole body. Redirects are followed. Any
// status is returned as a response; only transport problems are errors.
func (c *Client) Fetch(ctx context.Context, url string, headers map[string]string) (*domain.UpstreamResponse, error) {
	start := time.Now()
	defer func() {
		c.metrics.RecordDuration("fetch", time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.metrics.RecordError("fetch", "invalid_request")
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.RecordError("fetch", "transport")
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.ContentLength > c.config.MaxBodySize {
		c.metrics.RecordError("fetch", "too_large")
		return nil, domain.ArtifactTooLarge(c.config.MaxBodySize)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxBodySize+1))
	if err != nil {
		c.metrics.RecordError("fetch", "read_body")
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > c.config.MaxBodySize {
		c.metrics.RecordError("fetch", "too_large")
		return nil, domain.ArtifactTooLarge(c.config.MaxBodySize)
	}

	c.metrics.RecordSuccess("fetch")
	c.logger.Debug(ctx, "Upstream responded", types.Fields{
		"status":       resp.StatusCode,
		"content_type": resp.Header.Get("Content-Type"),
		"bytes":        len(body),
	})

	return &domain.UpstreamResponse{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
