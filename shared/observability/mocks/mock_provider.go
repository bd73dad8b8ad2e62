package mocks

import (
	"letreviewer/shared/observability/types"

	"github.com/stretchr/testify/mock"
)

// MockProvider is a mock implementation of types.Provider
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Logger(component string) types.Logger {
	args := m.Called(component)
	if logger, ok := args.Get(0).(types.Logger); ok {
		return logger
	}
	return nil
}

func (m *MockProvider) Metrics(component string) types.Metrics {
	args := m.Called(component)
	if metrics, ok := args.Get(0).(types.Metrics); ok {
		return metrics
	}
	return nil
}

func (m *MockProvider) Close() error {
	args := m.Called()
	return args.Error(0)
}

// NewQuietProvider returns a provider whose loggers and metrics accept any call.
func NewQuietProvider() *MockProvider {
	p := &MockProvider{}
	p.On("Logger", mock.Anything).Return(NewQuietLogger()).Maybe()
	p.On("Metrics", mock.Anything).Return(NewQuietMetrics()).Maybe()
	p.On("Close").Return(nil).Maybe()
	return p
}
