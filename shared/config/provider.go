package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// Provider manages configuration lifecycle and ensures singleton behavior
type Provider struct {
	config *Config
	mu     sync.RWMutex
	loaded bool
}

var (
	instance *Provider
	once     sync.Once
)

// GetProvider returns the singleton configuration provider instance
func GetProvider() *Provider {
	once.Do(func() {
		instance = &Provider{}
	})
	return instance
}

// Load loads configuration from environment variables and .env files,
// validating the sections of every worker.
// This should be called once at application startup
func (p *Provider) Load() error {
	return p.LoadFor("")
}

// LoadFor loads configuration for a single worker binary. Only the sections
// that worker uses are validated. WORKER in the environment wins over worker.
func (p *Provider) LoadFor(worker string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.loaded {
		return nil
	}

	if err := loadEnvFiles(); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}

	cfg, err := parseConfig()
	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Worker == "" {
		cfg.Worker = worker
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	p.config = cfg
	p.loaded = true
	return nil
}

// MustLoad loads configuration and panics on error
// Use this for application initialization where errors are fatal
func (p *Provider) MustLoad() {
	p.MustLoadFor("")
}

// MustLoadFor is LoadFor that panics on error.
func (p *Provider) MustLoadFor(worker string) {
	if err := p.LoadFor(worker); err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
}

// Get returns the current configuration
// Returns error if configuration hasn't been loaded
func (p *Provider) Get() (*Config, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.loaded || p.config == nil {
		return nil, fmt.Errorf("configuration not loaded; call Load() first")
	}

	return p.config, nil
}

// MustGet returns the configuration or panics if not loaded
func (p *Provider) MustGet() *Config {
	cfg, err := p.Get()
	if err != nil {
		panic(fmt.Sprintf("failed to get configuration: %v", err))
	}
	return cfg
}

// Reload reloads configuration from environment
func (p *Provider) Reload() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	cfg, err := parseConfig()
	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Worker == "" && p.config != nil {
		cfg.Worker = p.config.Worker
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	p.config = cfg
	p.loaded = true
	return nil
}

// IsLoaded returns whether configuration has been loaded
func (p *Provider) IsLoaded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loaded
}

// Reset clears the loaded configuration (useful for testing)
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config = nil
	p.loaded = false
}

// loadEnvFiles loads .env files in order of precedence
func loadEnvFiles() error {
	// Base .env never overrides the real environment
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return fmt.Errorf("failed to load .env: %w", err)
		}
	}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = os.Getenv("ENV")
	}
	if env != "" {
		envFile := fmt.Sprintf(".env.%s", env)
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Overload(envFile); err != nil {
				return fmt.Errorf("failed to load %s: %w", envFile, err)
			}
		}
	}

	if _, err := os.Stat(".env.local"); err == nil {
		if err := godotenv.Overload(".env.local"); err != nil {
			return fmt.Errorf("failed to load .env.local: %w", err)
		}
	}

	return nil
}

// parseConfig parses configuration from environment variables
func parseConfig() (*Config, error) {
	retriever := DefaultRetrieverConfig()
	upload := DefaultUploadConfig()

	cfg := &Config{
		// Core
		Environment: getEnv("ENVIRONMENT", "local"),
		ServiceName: getEnv("SERVICE_NAME", "letreviewer"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Version:     getEnv("SERVICE_VERSION", "1.0.0"),
		Worker:      getEnv("WORKER", ""),

		// HTTP
		HTTP: HTTPConfig{
			Addr:        getEnv("HTTP_ADDR", ":8080"),
			ReadTimeout: getDuration("HTTP_READ_TIMEOUT", "120s"),
		},

		// Handler
		Handler: HandlerConfig{
			Timeout:        getDuration("HANDLER_TIMEOUT", "150s"),
			MaxRequestSize: getInt64("HANDLER_MAX_REQUEST_SIZE", 25*1024*1024),
			EnableHealth:   getBool("HANDLER_ENABLE_HEALTH", true),
			EnableMetrics:  getBool("HANDLER_ENABLE_METRICS", true),
			EnableTracing:  getBool("HANDLER_ENABLE_TRACING", true),
			Platform:       getEnv("HANDLER_PLATFORM", ""),
		},

		// Retry
		Retry: RetryConfig{
			MaxAttempts:       getInt("RETRY_MAX_ATTEMPTS", 0),
			InitialBackoff:    getDuration("RETRY_INITIAL_BACKOFF", "100ms"),
			MaxBackoff:        getDuration("RETRY_MAX_BACKOFF", "10s"),
			BackoffMultiplier: getFloat64("RETRY_BACKOFF_MULTIPLIER", 2.0),
		},

		// Lambda
		Lambda: LambdaConfig{
			BinaryMediaTypes: getList("LAMBDA_BINARY_MEDIA_TYPES", DefaultLambdaConfig().BinaryMediaTypes),
		},

		// Storage
		Storage: StorageConfig{
			Provider:      getEnv("STORAGE_PROVIDER", "s3"),
			Bucket:        getEnv("STORAGE_BUCKET", ""),
			BasePath:      getEnv("STORAGE_BASE_PATH", ""),
			EnableMetrics: getBool("STORAGE_ENABLE_METRICS", true),
			MaxRetries:    getInt("STORAGE_MAX_RETRIES", 3),
			Timeout:       getDuration("STORAGE_TIMEOUT", "30s"),
			S3: S3Config{
				Region:          getEnv("AWS_REGION", "us-east-2"),
				AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
				SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
				Endpoint:        getEnv("S3_ENDPOINT", ""),
				UsePathStyle:    getBool("S3_USE_PATH_STYLE", false),
			},
		},

		// Observability
		Observability: ObservabilityConfig{
			MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
			MetricsPath: getEnv("METRICS_PATH", "/metrics"),
		},

		// Retriever
		Retriever: RetrieverConfig{
			URLTemplate:     getEnv("RETRIEVER_URL_TEMPLATE", retriever.URLTemplate),
			ConfirmParam:    getEnv("RETRIEVER_CONFIRM_PARAM", retriever.ConfirmParam),
			UserAgent:       getEnv("RETRIEVER_USER_AGENT", retriever.UserAgent),
			Headers:         retriever.Headers,
			DefaultResource: getEnv("RETRIEVER_DEFAULT_RESOURCE", retriever.DefaultResource),
			ContentType:     getEnv("RETRIEVER_CONTENT_TYPE", retriever.ContentType),
			FetchTimeout:    getDuration("RETRIEVER_FETCH_TIMEOUT", "60s"),
			MaxArtifactSize: getInt64("RETRIEVER_MAX_ARTIFACT_SIZE", retriever.MaxArtifactSize),
			TokenExtractor:  getEnv("RETRIEVER_TOKEN_EXTRACTOR", retriever.TokenExtractor),
		},

		// Upload
		Upload: UploadConfig{
			MaxFileSize:         getInt64("UPLOAD_MAX_FILE_SIZE", upload.MaxFileSize),
			AllowedContentTypes: getList("UPLOAD_ALLOWED_CONTENT_TYPES", upload.AllowedContentTypes),
			DefaultFolder:       getEnv("UPLOAD_DEFAULT_FOLDER", upload.DefaultFolder),
		},
	}

	for k, v := range getMap("RETRIEVER_HEADERS") {
		cfg.Retriever.Headers[k] = v
	}
	cfg.Retriever.Resources = parseResources(cfg.Retriever.DefaultResource)

	cfg.applyDefaults()

	return cfg, nil
}

// parseResources builds the resource catalogue. The default resource comes from
// RETRIEVER_RESOURCE_ID / RETRIEVER_FILENAME; extra entries from
// RETRIEVER_RESOURCES as "name=id:filename" pairs.
func parseResources(defaultName string) map[string]Resource {
	resources := map[string]Resource{
		defaultName: {
			ID:       getEnv("RETRIEVER_RESOURCE_ID", ""),
			Filename: getEnv("RETRIEVER_FILENAME", "let-reviewer.apk"),
		},
	}

	for name, entry := range getMap("RETRIEVER_RESOURCES") {
		id, filename, ok := strings.Cut(entry, ":")
		if !ok || filename == "" {
			filename = name + ".apk"
		}
		resources[name] = Resource{ID: id, Filename: filename}
	}

	return resources
}
