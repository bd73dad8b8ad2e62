package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"letreviewer/shared/handler"
	obmocks "letreviewer/shared/observability/mocks"
	storagemocks "letreviewer/shared/storage/mocks"
	storagetypes "letreviewer/shared/storage/types"
	"letreviewer/workers/uploader/internal/domain"
	"letreviewer/workers/uploader/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func formRequest(t *testing.T, form handler.FormPayload) handler.Request {
	t.Helper()
	payload, err := json.Marshal(form)
	require.NoError(t, err)
	return handler.Request{ID: "req-1", Type: "upload", Payload: payload}
}

func newQuietWorker(service UploadService, store storagetypes.ObjectStorage) *UploaderWorker {
	return NewUploaderWorker(service, store, obmocks.NewQuietLogger(), obmocks.NewQuietMetrics())
}

func TestUploaderWorker_Name(t *testing.T) {
	assert.Equal(t, "uploader", newQuietWorker(&mocks.MockUploadService{}, nil).Name())
}

func TestUploaderWorker_Process(t *testing.T) {
	t.Run("successful upload", func(t *testing.T) {
		mockLogger := &obmocks.MockLogger{}
		mockMetrics := &obmocks.MockMetrics{}
		mockService := &mocks.MockUploadService{}

		mockMetrics.On("StartOperation", "worker_process").Return()
		mockMetrics.On("EndOperation", "worker_process").Return()
		mockMetrics.On("RecordDuration", "worker_process", mock.AnythingOfType("float64")).Return()
		mockMetrics.On("RecordSuccess", "worker_process").Return()

		mockLogger.On("Info", mock.Anything, "Processing upload request", mock.Anything).Return()
		mockLogger.On("Info", mock.Anything, "Request processed successfully", mock.Anything).Return()

		uploadedAt := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
		mockService.On("Execute", mock.Anything, domain.UploadRequest{
			ID:          "req-1",
			Filename:    "reviewer.pdf",
			ContentType: "application/pdf",
			Folder:      "reviewers",
			Data:        []byte("%PDF"),
		}).Return(&domain.UploadResult{
			Key:         "reviewers/2024-01-15/id_reviewer.pdf",
			Size:        4,
			ContentType: "application/pdf",
			Checksum:    "abc",
			UploadedAt:  uploadedAt,
		}, nil)

		worker := NewUploaderWorker(mockService, nil, mockLogger, mockMetrics)

		resp, err := worker.Process(context.Background(), formRequest(t, handler.FormPayload{
			Fields: map[string]string{"folder": "reviewers"},
			Files: []handler.FormFile{{
				Field:       "file",
				Filename:    "reviewer.pdf",
				ContentType: "application/pdf",
				Data:        []byte("%PDF"),
			}},
		}))

		require.NoError(t, err)
		assert.True(t, resp.Success)

		var result domain.UploadResult
		require.NoError(t, json.Unmarshal(resp.Data, &result))
		assert.Equal(t, "reviewers/2024-01-15/id_reviewer.pdf", result.Key)
		assert.Equal(t, int64(4), result.Size)

		mockService.AssertExpectations(t)
		mockMetrics.AssertExpectations(t)
		mockLogger.AssertExpectations(t)
	})

	t.Run("malformed payload", func(t *testing.T) {
		resp, err := newQuietWorker(&mocks.MockUploadService{}, nil).Process(context.Background(), handler.Request{
			ID:      "req-2",
			Payload: []byte(`"just a string"`),
		})

		require.NoError(t, err)
		assert.Equal(t, domain.CodeValidation, resp.Error.Code)
	})

	t.Run("missing file field", func(t *testing.T) {
		mockService := &mocks.MockUploadService{}

		resp, err := newQuietWorker(mockService, nil).Process(context.Background(), formRequest(t, handler.FormPayload{
			Files: []handler.FormFile{{Field: "attachment", Filename: "a.pdf", Data: []byte("x")}},
		}))

		require.NoError(t, err)
		assert.Equal(t, domain.CodeValidation, resp.Error.Code)
		mockService.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
	})

	t.Run("more than one file", func(t *testing.T) {
		resp, err := newQuietWorker(&mocks.MockUploadService{}, nil).Process(context.Background(), formRequest(t, handler.FormPayload{
			Files: []handler.FormFile{
				{Field: "file", Filename: "a.pdf", Data: []byte("x")},
				{Field: "file", Filename: "b.pdf", Data: []byte("y")},
			},
		}))

		require.NoError(t, err)
		assert.Equal(t, domain.CodeValidation, resp.Error.Code)
	})

	t.Run("domain errors keep their code", func(t *testing.T) {
		tests := []struct {
			err       error
			code      string
			retryable bool
		}{
			{domain.PayloadTooLarge(10, 5), domain.CodePayloadTooLarge, false},
			{domain.UnsupportedMediaType("application/zip"), domain.CodeUnsupportedMediaType, false},
			{domain.StorageFailed(errors.New("timeout")), domain.CodeStorageFailed, true},
		}

		for _, tt := range tests {
			mockService := &mocks.MockUploadService{}
			mockService.On("Execute", mock.Anything, mock.Anything).Return(nil, tt.err)

			resp, err := newQuietWorker(mockService, nil).Process(context.Background(), formRequest(t, handler.FormPayload{
				Files: []handler.FormFile{{Field: "file", Filename: "a.pdf", Data: []byte("x")}},
			}))

			require.NoError(t, err)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, tt.retryable, resp.Error.Retryable)
		}
	})
}

func TestUploaderWorker_Health(t *testing.T) {
	t.Run("storage reachable", func(t *testing.T) {
		store := &storagemocks.MockStorage{}
		store.On("Exists", mock.Anything, "", ".health-check").Return(false, nil)

		assert.NoError(t, newQuietWorker(&mocks.MockUploadService{}, store).Health(context.Background()))
	})

	t.Run("storage down", func(t *testing.T) {
		store := &storagemocks.MockStorage{}
		store.On("Exists", mock.Anything, "", ".health-check").Return(false, errors.New("no route to host"))

		assert.Error(t, newQuietWorker(&mocks.MockUploadService{}, store).Health(context.Background()))
	})
}
