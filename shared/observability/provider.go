// Package observability provides a centralized provider for logging and metrics
// components used throughout the LET reviewer workers.
package observability

import (
	"fmt"
	"io"
	"os"
	"sync"

	"letreviewer/shared/observability/logger"
	"letreviewer/shared/observability/metrics"
	"letreviewer/shared/observability/types"

	"github.com/prometheus/client_golang/prometheus"
)

// Logger is a type alias for the Logger interface from the types package.
type Logger = types.Logger

// Metrics is a type alias for the Metrics interface from the types package.
type Metrics = types.Metrics

// Fields is a type alias for structured logging fields.
type Fields = types.Fields

// Config is a type alias for the observability configuration.
type Config = types.Config

// Provider is a type alias for the Provider interface from the types package.
type Provider = types.Provider

// DefaultProvider implements the Provider interface.
// Loggers and metrics are created lazily, once per component.
type DefaultProvider struct {
	config  *Config
	loggers map[string]Logger
	metrics map[string]Metrics
	mu      sync.RWMutex
}

// NewProvider creates a new observability provider with the given configuration.
// If LogOutput is not specified it defaults to os.Stdout; if Registerer is not
// specified metrics go to the default Prometheus registry.
//
// Parameters:
//   - config: Service identity, log level and metric destinations; defaults are written back into it
//
// Returns:
//   - A Provider that creates components lazily
//
// Example:
//
//	provider := observability.NewProvider(&observability.Config{
//		ServiceName: "letreviewer",
//		Environment: "production",
//		LogLevel:    "info",
//	})
//	logger := provider.Logger("retriever")
func NewProvider(config *Config) Provider {
	if config.LogOutput == nil {
		config.LogOutput = os.Stdout
	}
	if config.Registerer == nil {
		config.Registerer = prometheus.DefaultRegisterer
	}

	return &DefaultProvider{
		config:  config,
		loggers: make(map[string]Logger),
		metrics: make(map[string]Metrics),
	}
}

// Logger returns the Logger for component. The logger carries the provider's
// AdditionalFields plus a "component" field, and reports its service as
// "{ServiceName}.{component}".
//
// Parameters:
//   - component: Name of the component, e.g. "retriever" or "client_http"
//
// Returns:
//   - The component's Logger, the same instance on every call
func (p *DefaultProvider) Logger(component string) Logger {
	p.mu.RLock()
	if l, exists := p.loggers[component]; exists {
		p.mu.RUnlock()
		return l
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double-check
	if l, exists := p.loggers[component]; exists {
		return l
	}

	fields := make(Fields)
	for k, v := range p.config.AdditionalFields {
		fields[k] = v
	}
	fields["component"] = component

	l := logger.New(
		fmt.Sprintf("%s.%s", p.config.ServiceName, component),
		p.config.Environment,
		p.config.LogLevel,
		p.config.LogOutput,
		fields,
	)

	p.loggers[component] = l
	return l
}

// Metrics returns the Metrics collector for component. Metric names are
// prefixed with "{ServiceName}_{component}".
//
// Parameters:
//   - component: Name of the component; use underscores so the prefix stays readable
//
// Returns:
//   - The component's Metrics, the same instance on every call
func (p *DefaultProvider) Metrics(component string) Metrics {
	p.mu.RLock()
	if m, exists := p.metrics[component]; exists {
		p.mu.RUnlock()
		return m
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	if m, exists := p.metrics[component]; exists {
		return m
	}

	m := metrics.NewWithRegisterer(fmt.Sprintf("%s_%s", p.config.ServiceName, component), p.config.Registerer)
	p.metrics[component] = m
	return m
}

// Close closes LogOutput when it is an io.Closer other than stdout/stderr.
func (p *DefaultProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if closer, ok := p.config.LogOutput.(io.Closer); ok {
		if closer != os.Stdout && closer != os.Stderr {
			return closer.Close()
		}
	}

	return nil
}
