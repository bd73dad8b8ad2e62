// Package storage owns the process-wide object storage instance.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"letreviewer/shared/config"
	"letreviewer/shared/observability"
	"letreviewer/shared/observability/metrics"
	"letreviewer/shared/storage/types"
)

// Provider manages storage lifecycle and ensures singleton behavior
type Provider struct {
	storage     types.ObjectStorage
	config      *config.Config
	logger      observability.Logger
	metrics     observability.Metrics
	mu          sync.RWMutex
	initialized bool

	// factory is swapped in tests
	factory func(*config.Config, observability.Logger, observability.Metrics) (types.ObjectStorage, error)
}

var (
	instance *Provider
	once     sync.Once
)

// GetProvider returns the singleton storage provider instance
func GetProvider() *Provider {
	once.Do(func() {
		instance = &Provider{}
	})
	return instance
}

// Initialize creates the configured storage adapter and checks that it is
// reachable. It is a no-op once initialized.
func (p *Provider) Initialize(cfg *config.Config, logger observability.Logger, metrics observability.Metrics) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}

	if cfg.Storage.Provider == "" {
		return errors.New("storage is not configured")
	}

	create := p.factory
	if create == nil {
		create = createStorage
	}

	store, err := create(cfg, logger, metrics)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}

	if err := testConnection(store); err != nil {
		return fmt.Errorf("failed to verify storage connection: %w", err)
	}

	logger.Info(context.Background(), "storage initialized", observability.Fields{
		"provider": cfg.Storage.Provider,
		"bucket":   cfg.Storage.Bucket,
	})

	p.storage = store
	p.config = cfg
	p.logger = logger
	p.metrics = metrics
	p.initialized = true

	return nil
}

// createStorage is the only place that knows about concrete adapters.
func createStorage(cfg *config.Config, logger observability.Logger, m observability.Metrics) (types.ObjectStorage, error) {
	m = storageMetrics(cfg, m)

	switch cfg.Storage.Provider {
	case "s3":
		return createS3Storage(cfg, logger, m)
	case "fs":
		return createFSStorage(cfg, logger, m)
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", cfg.Storage.Provider)
	}
}

// storageMetrics honours STORAGE_ENABLE_METRICS.
func storageMetrics(cfg *config.Config, m observability.Metrics) observability.Metrics {
	if !cfg.Storage.EnableMetrics || m == nil {
		return metrics.Discard{}
	}
	return m
}

func testConnection(store types.ObjectStorage) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := store.Exists(ctx, "", ".health-check"); err != nil && !errors.Is(err, types.ErrObjectNotFound) {
		return err
	}
	return nil
}

// MustInitialize initializes the storage provider and panics on error
func (p *Provider) MustInitialize(cfg *config.Config, logger observability.Logger, metrics observability.Metrics) {
	if err := p.Initialize(cfg, logger, metrics); err != nil {
		panic(fmt.Sprintf("failed to initialize storage: %v", err))
	}
}

// GetStorage returns the storage instance
func (p *Provider) GetStorage() (types.ObjectStorage, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.initialized || p.storage == nil {
		return nil, errors.New("storage not initialized; call Initialize() first")
	}

	return p.storage, nil
}

// MustGetStorage returns the storage or panics if not initialized
func (p *Provider) MustGetStorage() types.ObjectStorage {
	store, err := p.GetStorage()
	if err != nil {
		panic(fmt.Sprintf("failed to get storage: %v", err))
	}
	return store
}

// IsInitialized returns whether storage has been initialized
func (p *Provider) IsInitialized() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.initialized
}

// Close releases the storage instance.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return nil
	}

	if p.logger != nil {
		p.logger.Info(context.Background(), "closing storage provider", nil)
	}

	p.storage = nil
	p.initialized = false

	return nil
}

// Reset clears all state (useful for testing)
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.storage = nil
	p.config = nil
	p.logger = nil
	p.metrics = nil
	p.initialized = false
}
