package config

import "time"

const (
	// DefaultUserAgent identifies as a desktop browser; the upstream host blocks automated clients.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// APKContentType is the media type of the retrieved artifact.
	APKContentType = "application/vnd.android.package-archive"

	// FetchTimeoutMargin is the slack HANDLER_TIMEOUT keeps over two upstream fetches.
	FetchTimeoutMargin = 10 * time.Second
)

// DefaultHandlerConfig returns sensible defaults for handler configuration
func DefaultHandlerConfig() HandlerConfig {
	return HandlerConfig{
		Timeout:        30 * time.Second,
		MaxRequestSize: 10 * 1024 * 1024, // 10MB
		EnableHealth:   true,
		EnableMetrics:  true,
		EnableTracing:  true,
		Platform:       "", // Auto-detect
	}
}

// defaultServiceHandlerConfig leaves room for the two retriever fetches.
func defaultServiceHandlerConfig() HandlerConfig {
	cfg := DefaultHandlerConfig()
	cfg.Timeout = 150 * time.Second
	return cfg
}

// DefaultHTTPConfig returns sensible defaults for HTTP server configuration
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Addr:        ":8080",
		ReadTimeout: 120 * time.Second,
	}
}

// DefaultRetryConfig returns sensible defaults for retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       0,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// DefaultLambdaConfig returns sensible defaults for Lambda configuration
func DefaultLambdaConfig() LambdaConfig {
	return LambdaConfig{
		BinaryMediaTypes: []string{APKContentType, "application/octet-stream"},
	}
}

// DefaultStorageConfig returns sensible defaults for storage configuration
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		Provider:      "s3",
		EnableMetrics: true,
		MaxRetries:    3,
		Timeout:       30 * time.Second,
		S3: S3Config{
			Region: "us-east-2",
		},
	}
}

// DefaultObservabilityConfig returns sensible defaults for observability configuration
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		MetricsAddr: ":9090",
		MetricsPath: "/metrics",
	}
}

// DefaultRetrieverConfig returns the Google Drive retrieval settings.
// The upstream resource ID has no default and must be configured.
func DefaultRetrieverConfig() RetrieverConfig {
	return RetrieverConfig{
		URLTemplate:  "https://drive.google.com/uc?export=download&id=%s",
		ConfirmParam: "confirm",
		UserAgent:    DefaultUserAgent,
		Headers: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
		},
		Resources: map[string]Resource{
			"default": {Name: "default", Filename: "let-reviewer.apk"},
		},
		DefaultResource: "default",
		ContentType:     APKContentType,
		FetchTimeout:    60 * time.Second,
		MaxArtifactSize: 200 * 1024 * 1024,
		TokenExtractor:  "regex",
	}
}

// DefaultUploadConfig returns sensible defaults for the upload proxy
func DefaultUploadConfig() UploadConfig {
	return UploadConfig{
		MaxFileSize: 20 * 1024 * 1024,
		AllowedContentTypes: []string{
			"application/pdf",
			"image/png",
			"image/jpeg",
			"image/webp",
			"text/plain",
		},
		DefaultFolder: "uploads",
	}
}

// DefaultConfig returns a complete configuration with sensible defaults
// This is useful for testing or when you want to start with defaults and override specific parts
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		ServiceName: "letreviewer",
		LogLevel:    "info",
		Version:     "1.0.0",

		HTTP:          DefaultHTTPConfig(),
		Handler:       defaultServiceHandlerConfig(),
		Retry:         DefaultRetryConfig(),
		Lambda:        DefaultLambdaConfig(),
		Storage:       DefaultStorageConfig(),
		Observability: DefaultObservabilityConfig(),
		Retriever:     DefaultRetrieverConfig(),
		Upload:        DefaultUploadConfig(),
	}
}
