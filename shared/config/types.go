package config

import (
	"fmt"
	"strings"
	"time"
)

// Worker names.
const (
	WorkerRetriever = "retriever"
	WorkerUploader  = "uploader"
)

// Config holds all application configuration
type Config struct {
	// Core settings
	Environment string
	ServiceName string
	LogLevel    string
	Version     string

	// Worker names the binary this configuration is for; empty means all
	// workers and validates every section.
	Worker string

	// Component configurations
	HTTP          HTTPConfig
	Handler       HandlerConfig
	Retry         RetryConfig
	Lambda        LambdaConfig
	Storage       StorageConfig
	Observability ObservabilityConfig
	Retriever     RetrieverConfig
	Upload        UploadConfig
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Addr string // Server address for HTTP mode
	// ReadTimeout bounds reading a whole request, body included.
	ReadTimeout time.Duration
}

// HandlerConfig holds handler configuration
type HandlerConfig struct {
	Timeout        time.Duration
	MaxRequestSize int64
	EnableHealth   bool
	EnableMetrics  bool
	EnableTracing  bool
	Platform       string // auto-detected if empty
}

// RetryConfig holds retry policy configuration
type RetryConfig struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// LambdaConfig holds Lambda-specific configuration
type LambdaConfig struct {
	// BinaryMediaTypes mirrors the API Gateway binaryMediaTypes setting;
	// raw bodies of these types are always returned base64 encoded.
	BinaryMediaTypes []string
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Provider      string // s3 or fs
	Bucket        string
	BasePath      string // root directory for the fs provider
	EnableMetrics bool
	MaxRetries    int
	Timeout       time.Duration
	S3            S3Config
}

// S3Config holds S3 connection settings
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // LocalStack / MinIO
	UsePathStyle    bool
}

// ObservabilityConfig holds logging and metrics settings
type ObservabilityConfig struct {
	MetricsAddr string
	MetricsPath string
}

// RetrieverConfig describes the upstream file host and the headers sent to it.
type RetrieverConfig struct {
	// URLTemplate is formatted with the resource ID (fmt verb %s).
	URLTemplate string
	// ConfirmParam is the query parameter carrying the confirmation token.
	ConfirmParam string
	UserAgent    string
	Headers      map[string]string

	// Resources maps a public resource name to its upstream identifier.
	Resources       map[string]Resource
	DefaultResource string

	ContentType     string
	FetchTimeout    time.Duration
	MaxArtifactSize int64
	TokenExtractor  string // regex, form or chain
}

// Resource is one downloadable artifact hosted upstream.
type Resource struct {
	Name     string
	ID       string
	Filename string
}

// UploadConfig holds upload proxy settings
type UploadConfig struct {
	MaxFileSize         int64
	AllowedContentTypes []string
	DefaultFolder       string
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	var errors []string

	if c.ServiceName == "" {
		errors = append(errors, "SERVICE_NAME is required")
	}

	if c.HTTP.ReadTimeout <= 0 {
		errors = append(errors, "HTTP_READ_TIMEOUT must be positive")
	}
	if c.Handler.Timeout <= 0 {
		errors = append(errors, "HANDLER_TIMEOUT must be positive")
	}
	if c.Handler.MaxRequestSize <= 0 {
		errors = append(errors, "HANDLER_MAX_REQUEST_SIZE must be positive")
	}
	if c.Retry.MaxAttempts < 0 {
		errors = append(errors, "RETRY_MAX_ATTEMPTS cannot be negative")
	}
	if c.Retry.BackoffMultiplier < 1.0 {
		errors = append(errors, "RETRY_BACKOFF_MULTIPLIER must be >= 1.0")
	}

	if c.Runs(WorkerRetriever) {
		errors = append(errors, c.Retriever.validate()...)

		// both fetches must be able to time out on their own before the handler does
		if floor := 2*c.Retriever.FetchTimeout + FetchTimeoutMargin; c.Retriever.FetchTimeout > 0 && c.Handler.Timeout < floor {
			errors = append(errors, fmt.Sprintf("HANDLER_TIMEOUT must be at least %v (two RETRIEVER_FETCH_TIMEOUT plus %v)", floor, FetchTimeoutMargin))
		}
	}

	if c.Runs(WorkerUploader) {
		switch c.Storage.Provider {
		case "s3":
			if c.IsProduction() && c.Storage.Bucket == "" {
				errors = append(errors, "STORAGE_BUCKET is required in production")
			}
		case "fs":
			if c.Storage.BasePath == "" {
				errors = append(errors, "STORAGE_BASE_PATH is required for the fs provider")
			}
		default:
			errors = append(errors, fmt.Sprintf("unsupported STORAGE_PROVIDER %q", c.Storage.Provider))
		}

		if c.Upload.MaxFileSize <= 0 {
			errors = append(errors, "UPLOAD_MAX_FILE_SIZE must be positive")
		}
		if len(c.Upload.AllowedContentTypes) == 0 {
			errors = append(errors, "UPLOAD_ALLOWED_CONTENT_TYPES cannot be empty")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (r RetrieverConfig) validate() []string {
	var errors []string

	if !strings.Contains(r.URLTemplate, "%s") {
		errors = append(errors, "RETRIEVER_URL_TEMPLATE must contain %s")
	}
	if r.ConfirmParam == "" {
		errors = append(errors, "RETRIEVER_CONFIRM_PARAM is required")
	}
	if r.UserAgent == "" {
		errors = append(errors, "RETRIEVER_USER_AGENT is required")
	}
	if r.FetchTimeout <= 0 {
		errors = append(errors, "RETRIEVER_FETCH_TIMEOUT must be positive")
	}
	if r.MaxArtifactSize <= 0 {
		errors = append(errors, "RETRIEVER_MAX_ARTIFACT_SIZE must be positive")
	}
	if _, ok := r.Resources[r.DefaultResource]; !ok {
		errors = append(errors, fmt.Sprintf("default resource %q is not configured", r.DefaultResource))
	}
	for name, res := range r.Resources {
		if res.ID == "" {
			errors = append(errors, fmt.Sprintf("resource %q has no upstream id", name))
		}
		if res.Filename == "" {
			errors = append(errors, fmt.Sprintf("resource %q has no filename", name))
		}
	}
	switch r.TokenExtractor {
	case "regex", "form", "chain":
	default:
		errors = append(errors, fmt.Sprintf("unsupported RETRIEVER_TOKEN_EXTRACTOR %q", r.TokenExtractor))
	}

	return errors
}

// Runs reports whether the configuration covers the named worker.
func (c *Config) Runs(worker string) bool {
	return c.Worker == "" || c.Worker == worker
}

// Lookup returns the named resource, falling back to the default one when name is empty.
func (r RetrieverConfig) Lookup(name string) (Resource, bool) {
	if name == "" {
		name = r.DefaultResource
	}
	res, ok := r.Resources[name]
	return res, ok
}

// applyDefaults applies environment-specific defaults
func (c *Config) applyDefaults() {
	env := strings.ToLower(c.Environment)

	if c.Storage.Provider == "s3" && c.Storage.Bucket == "" && !c.IsProduction() {
		c.Storage.Bucket = fmt.Sprintf("letreviewer-%s-uploads", env)
	}

	if c.IsProduction() {
		if c.Handler.Timeout < 60*time.Second {
			c.Handler.Timeout = 60 * time.Second
		}
		c.Handler.EnableMetrics = true
		c.Handler.EnableTracing = true
	}

	if c.IsLocal() {
		c.Handler.EnableTracing = false
	}

	for name, res := range c.Retriever.Resources {
		res.Name = name
		c.Retriever.Resources[name] = res
	}
}
