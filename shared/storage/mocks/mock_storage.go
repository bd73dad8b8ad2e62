// Package mocks provides a testify mock of types.ObjectStorage.
package mocks

import (
	"context"
	"io"

	"letreviewer/shared/storage/types"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a mock implementation of types.ObjectStorage
type MockStorage struct {
	mock.Mock
}

var _ types.ObjectStorage = (*MockStorage)(nil)

// Put drains the reader; expectations match on the stored bytes.
func (m *MockStorage) Put(ctx context.Context, bucket, key string, reader io.Reader, metadata types.ObjectMetadata) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	args := m.Called(ctx, bucket, key, data, metadata)
	return args.Error(0)
}

func (m *MockStorage) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, bucket, key)
	if rc, ok := args.Get(0).(io.ReadCloser); ok {
		return rc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStorage) GetWithMetadata(ctx context.Context, bucket, key string) (io.ReadCloser, *types.ObjectMetadata, error) {
	args := m.Called(ctx, bucket, key)
	rc, _ := args.Get(0).(io.ReadCloser)
	md, _ := args.Get(1).(*types.ObjectMetadata)
	return rc, md, args.Error(2)
}

func (m *MockStorage) Delete(ctx context.Context, bucket, key string) error {
	args := m.Called(ctx, bucket, key)
	return args.Error(0)
}

func (m *MockStorage) Exists(ctx context.Context, bucket, key string) (bool, error) {
	args := m.Called(ctx, bucket, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) List(ctx context.Context, bucket, prefix string) ([]types.ObjectInfo, error) {
	args := m.Called(ctx, bucket, prefix)
	infos, _ := args.Get(0).([]types.ObjectInfo)
	return infos, args.Error(1)
}
