// Package mocks provides testify mocks of the retriever's ports.
package mocks

import (
	"context"

	"letreviewer/workers/retriever/internal/domain"

	"github.com/stretchr/testify/mock"
)

// MockHTTPClient is a mock implementation of domain.HTTPClient
type MockHTTPClient struct {
	mock.Mock
}

func (m *MockHTTPClient) Fetch(ctx context.Context, url string, headers map[string]string) (*domain.UpstreamResponse, error) {
	args := m.Called(ctx, url, headers)

	var resp *domain.UpstreamResponse
	if args.Get(0) != nil {
		resp = args.Get(0).(*domain.UpstreamResponse)
	}

	return resp, args.Error(1)
}
