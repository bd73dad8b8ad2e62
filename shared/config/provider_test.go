package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("RETRIEVER_RESOURCE_ID", "1AbCdEf")
}

func TestProvider_Load(t *testing.T) {
	t.Run("loads defaults from environment", func(t *testing.T) {
		setRequiredEnv(t)

		p := &Provider{}
		require.NoError(t, p.Load())
		assert.True(t, p.IsLoaded())

		cfg := p.MustGet()
		assert.Equal(t, "test", cfg.Environment)
		assert.Equal(t, "letreviewer", cfg.ServiceName)
		assert.Equal(t, 60*time.Second, cfg.Retriever.FetchTimeout)
		assert.Equal(t, APKContentType, cfg.Retriever.ContentType)
		assert.Equal(t, "regex", cfg.Retriever.TokenExtractor)
		assert.Equal(t, 150*time.Second, cfg.Handler.Timeout)
		assert.Equal(t, 120*time.Second, cfg.HTTP.ReadTimeout)
		assert.Equal(t, []string{APKContentType, "application/octet-stream"}, cfg.Lambda.BinaryMediaTypes)

		res, ok := cfg.Retriever.Lookup("")
		require.True(t, ok)
		assert.Equal(t, "default", res.Name)
		assert.Equal(t, "1AbCdEf", res.ID)
		assert.Equal(t, "let-reviewer.apk", res.Filename)
	})

	t.Run("missing resource id fails validation", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", "test")
		t.Setenv("RETRIEVER_RESOURCE_ID", "")

		p := &Provider{}
		err := p.Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), `resource "default" has no upstream id`)
		assert.False(t, p.IsLoaded())
	})

	t.Run("uploader does not need a resource id", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", "test")
		t.Setenv("RETRIEVER_RESOURCE_ID", "")
		t.Setenv("STORAGE_PROVIDER", "fs")
		t.Setenv("STORAGE_BASE_PATH", t.TempDir())

		p := &Provider{}
		require.NoError(t, p.LoadFor(WorkerUploader))

		cfg := p.MustGet()
		assert.Equal(t, WorkerUploader, cfg.Worker)
		assert.False(t, cfg.Runs(WorkerRetriever))
	})

	t.Run("retriever ignores storage settings", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("STORAGE_PROVIDER", "gcs")

		p := &Provider{}
		require.NoError(t, p.LoadFor(WorkerRetriever))
	})

	t.Run("get before load", func(t *testing.T) {
		p := &Provider{}
		_, err := p.Get()
		assert.Error(t, err)
		assert.Panics(t, func() { p.MustGet() })
	})
}

func TestParseConfig_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RETRIEVER_FETCH_TIMEOUT", "5s")
	t.Setenv("RETRIEVER_HEADERS", "Referer=https://drive.google.com/, X-Extra = 1")
	t.Setenv("RETRIEVER_RESOURCES", "beta=2XyZ:let-reviewer-beta.apk,nightly=3Qq")
	t.Setenv("RETRIEVER_TOKEN_EXTRACTOR", "chain")
	t.Setenv("UPLOAD_ALLOWED_CONTENT_TYPES", "application/pdf, image/png")

	cfg, err := parseConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5*time.Second, cfg.Retriever.FetchTimeout)
	assert.Equal(t, "https://drive.google.com/", cfg.Retriever.Headers["Referer"])
	assert.Equal(t, "1", cfg.Retriever.Headers["X-Extra"])
	assert.Equal(t, "chain", cfg.Retriever.TokenExtractor)
	assert.Equal(t, []string{"application/pdf", "image/png"}, cfg.Upload.AllowedContentTypes)

	beta, ok := cfg.Retriever.Lookup("beta")
	require.True(t, ok)
	assert.Equal(t, Resource{Name: "beta", ID: "2XyZ", Filename: "let-reviewer-beta.apk"}, beta)

	nightly, ok := cfg.Retriever.Lookup("nightly")
	require.True(t, ok)
	assert.Equal(t, "nightly.apk", nightly.Filename)

	_, ok = cfg.Retriever.Lookup("missing")
	assert.False(t, ok)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Retriever.Resources["default"] = Resource{Name: "default", ID: "abc", Filename: "app.apk"}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"template without verb", func(c *Config) { c.Retriever.URLTemplate = "https://example.com" }, "RETRIEVER_URL_TEMPLATE"},
		{"empty user agent", func(c *Config) { c.Retriever.UserAgent = "" }, "RETRIEVER_USER_AGENT"},
		{"bad extractor", func(c *Config) { c.Retriever.TokenExtractor = "magic" }, "RETRIEVER_TOKEN_EXTRACTOR"},
		{"unknown default", func(c *Config) { c.Retriever.DefaultResource = "nope" }, "default resource"},
		{"fs without path", func(c *Config) { c.Storage.Provider = "fs" }, "STORAGE_BASE_PATH"},
		{"unknown storage", func(c *Config) { c.Storage.Provider = "gcs" }, "STORAGE_PROVIDER"},
		{"production bucket", func(c *Config) { c.Environment = "production" }, "STORAGE_BUCKET"},
		{"backoff multiplier", func(c *Config) { c.Retry.BackoffMultiplier = 0.5 }, "RETRY_BACKOFF_MULTIPLIER"},
		{"read timeout", func(c *Config) { c.HTTP.ReadTimeout = 0 }, "HTTP_READ_TIMEOUT"},
		{"handler timeout shorter than two fetches", func(c *Config) {
			c.Retriever.FetchTimeout = 60 * time.Second
			c.Handler.Timeout = 120 * time.Second
		}, "HANDLER_TIMEOUT must be at least 2m10s"},
		{"handler timeout covering two fetches", func(c *Config) {
			c.Retriever.FetchTimeout = 150 * time.Millisecond
			c.Handler.Timeout = 10300 * time.Millisecond
		}, ""},
		{"uploader ignores fetch timeout", func(c *Config) {
			c.Worker = WorkerUploader
			c.Storage.Provider = "fs"
			c.Storage.BasePath = "/tmp"
			c.Handler.Timeout = time.Second
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_EnvironmentDetection(t *testing.T) {
	cfg := &Config{Environment: "PROD"}
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.IsLocal())

	cfg.Environment = "dev"
	assert.True(t, cfg.IsLocal())

	cfg.Environment = "testing"
	assert.True(t, cfg.IsTest())

	cfg.Environment = "stage"
	assert.True(t, cfg.IsStaging())
}
