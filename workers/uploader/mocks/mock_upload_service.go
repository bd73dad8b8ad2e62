// Package mocks provides testify mocks of the uploader's dependencies.
package mocks

import (
	"context"

	"letreviewer/workers/uploader/internal/domain"

	"github.com/stretchr/testify/mock"
)

// MockUploadService is a mock implementation of worker.UploadService
type MockUploadService struct {
	mock.Mock
}

func (m *MockUploadService) Execute(ctx context.Context, req domain.UploadRequest) (*domain.UploadResult, error) {
	args := m.Called(ctx, req)

	var result *domain.UploadResult
	if args.Get(0) != nil {
		result = args.Get(0).(*domain.UploadResult)
	}

	return result, args.Error(1)
}
