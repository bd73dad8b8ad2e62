package mocks

import (
	"context"

	"letreviewer/shared/config"
	"letreviewer/workers/retriever/internal/domain"

	"github.com/stretchr/testify/mock"
)

// MockRetrievalService is a mock implementation of worker.RetrievalService
type MockRetrievalService struct {
	mock.Mock
}

func (m *MockRetrievalService) Retrieve(ctx context.Context, resource config.Resource) (*domain.Artifact, error) {
	args := m.Called(ctx, resource)

	var artifact *domain.Artifact
	if args.Get(0) != nil {
		artifact = args.Get(0).(*domain.Artifact)
	}

	return artifact, args.Error(1)
}
