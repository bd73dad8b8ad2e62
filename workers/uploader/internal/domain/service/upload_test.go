package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"letreviewer/shared/config"
	obmocks "letreviewer/shared/observability/mocks"
	storagemocks "letreviewer/shared/storage/mocks"
	storagetypes "letreviewer/shared/storage/types"
	"letreviewer/workers/uploader/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)

const pdfBytes = "%PDF-1.4\n1 0 obj\n<<>>\nendobj\n"

func newTestService(store storagetypes.ObjectStorage) *UploadService {
	cfg := config.DefaultUploadConfig()
	cfg.MaxFileSize = 64

	s := NewUploadService(store, cfg, obmocks.NewQuietLogger(), obmocks.NewQuietMetrics())
	s.now = func() time.Time { return fixedTime }
	s.newID = func() string { return "7d9f" }
	return s
}

func TestUploadService_Execute(t *testing.T) {
	store := &storagemocks.MockStorage{}
	store.On("Put", mock.Anything, "", "reviewers/2024-01-15/7d9f_General_Education.pdf", []byte(pdfBytes),
		mock.MatchedBy(func(md storagetypes.ObjectMetadata) bool {
			return md.ContentType == "application/pdf" &&
				len(md.UserMetadata["sha256"]) == 64 &&
				md.UserMetadata["original-filename"] == "General Education.pdf" &&
				md.UserMetadata["request-id"] == "req-1"
		})).Return(nil).Once()

	result, err := newTestService(store).Execute(context.Background(), domain.UploadRequest{
		ID:          "req-1",
		Filename:    "General Education.pdf",
		ContentType: "application/pdf",
		Folder:      "/reviewers/",
		Data:        []byte(pdfBytes),
	})

	require.NoError(t, err)
	assert.Equal(t, "reviewers/2024-01-15/7d9f_General_Education.pdf", result.Key)
	assert.Equal(t, int64(len(pdfBytes)), result.Size)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.Len(t, result.Checksum, 64)
	assert.Equal(t, fixedTime, result.UploadedAt)
	store.AssertExpectations(t)
}

func TestUploadService_DefaultFolderAndSniffing(t *testing.T) {
	store := &storagemocks.MockStorage{}
	store.On("Put", mock.Anything, "", "uploads/2024-01-15/7d9f_notes.pdf", mock.Anything,
		mock.MatchedBy(func(md storagetypes.ObjectMetadata) bool {
			return md.ContentType == "application/pdf"
		})).Return(nil).Once()

	result, err := newTestService(store).Execute(context.Background(), domain.UploadRequest{
		Filename:    "notes.pdf",
		ContentType: "application/octet-stream",
		Data:        []byte(pdfBytes),
	})

	require.NoError(t, err)
	assert.Equal(t, "uploads/2024-01-15/7d9f_notes.pdf", result.Key)
}

func TestUploadService_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		req      domain.UploadRequest
		sentinel error
	}{
		{"empty file", domain.UploadRequest{Filename: "a.pdf", ContentType: "application/pdf"}, domain.ErrValidation},
		{"too large", domain.UploadRequest{Filename: "a.txt", ContentType: "text/plain", Data: []byte(strings.Repeat("a", 65))}, domain.ErrPayloadTooLarge},
		{"disallowed type", domain.UploadRequest{Filename: "a.apk", ContentType: "application/zip", Data: []byte("PK")}, domain.ErrUnsupportedMediaType},
		{"sniffed html", domain.UploadRequest{Filename: "a", Data: []byte("<html><body>x</body></html>")}, domain.ErrUnsupportedMediaType},
		{"folder traversal", domain.UploadRequest{Filename: "a.txt", ContentType: "text/plain", Folder: "../etc", Data: []byte("x")}, domain.ErrValidation},
		{"folder with spaces", domain.UploadRequest{Filename: "a.txt", ContentType: "text/plain", Folder: "my docs", Data: []byte("x")}, domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &storagemocks.MockStorage{}

			result, err := newTestService(store).Execute(context.Background(), tt.req)

			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.sentinel)
			store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestUploadService_ContentTypeParameters(t *testing.T) {
	store := &storagemocks.MockStorage{}
	store.On("Put", mock.Anything, "", mock.Anything, mock.Anything, mock.MatchedBy(func(md storagetypes.ObjectMetadata) bool {
		return md.ContentType == "text/plain"
	})).Return(nil).Once()

	result, err := newTestService(store).Execute(context.Background(), domain.UploadRequest{
		Filename:    "notes.txt",
		ContentType: "text/plain; charset=utf-8",
		Data:        []byte("hello"),
	})

	require.NoError(t, err)
	assert.Equal(t, "text/plain", result.ContentType)
}

func TestUploadService_StorageFailure(t *testing.T) {
	store := &storagemocks.MockStorage{}
	store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("bucket gone"))

	_, err := newTestService(store).Execute(context.Background(), domain.UploadRequest{
		Filename:    "notes.txt",
		ContentType: "text/plain",
		Data:        []byte("hello"),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorageFailed)
	assert.Contains(t, err.Error(), "bucket gone")
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"reviewer.pdf":            "reviewer.pdf",
		"Prof Ed Set A.pdf":       "Prof_Ed_Set_A.pdf",
		"../../etc/passwd":        "passwd",
		`C:\Users\me\notes.txt`:   "notes.txt",
		"..":                      "file",
		"":                        "file",
		"ñandú (1).png":           "and_1_.png",
		strings.Repeat("x", 150) + ".pdf": strings.Repeat("x", 96) + ".pdf",
	}

	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), in)
	}
}
