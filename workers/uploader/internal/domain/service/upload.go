package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"mime"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"letreviewer/shared/config"
	"letreviewer/shared/observability/types"
	storagetypes "letreviewer/shared/storage/types"
	"letreviewer/workers/uploader/internal/domain"

	"github.com/google/uuid"
)

const maxFilenameLength = 100

var (
	unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	folderPattern       = regexp.MustCompile(`^[A-Za-z0-9_-]+(/[A-Za-z0-9_-]+)*$`)
)

// UploadService validates uploads and writes them to object storage.
type UploadService struct {
	storage storagetypes.ObjectStorage
	config  config.UploadConfig
	allowed map[string]bool
	logger  types.Logger
	metrics types.Metrics

	now   func() time.Time
	newID func() string
}

// NewUploadService creates a new upload service
func NewUploadService(
	storage storagetypes.ObjectStorage,
	cfg config.UploadConfig,
	logger types.Logger,
	metrics types.Metrics,
) *UploadService {
	allowed := make(map[string]bool, len(cfg.AllowedContentTypes))
	for _, ct := range cfg.AllowedContentTypes {
		allowed[strings.ToLower(strings.TrimSpace(ct))] = true
	}

	return &UploadService{
		storage: storage,
		config:  cfg,
		allowed: allowed,
		logger:  logger,
		metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   func() string { return uuid.New().String() },
	}
}

// Execute validates req and stores it.
func (s *UploadService) Execute(ctx context.Context, req domain.UploadRequest) (*domain.UploadResult, error) {
	s.metrics.StartOperation("upload")
	defer s.metrics.EndOperation("upload")
	startTime := time.Now()
	defer func() {
		s.metrics.RecordDuration("upload", time.Since(startTime).Seconds())
	}()

	contentType, err := s.validateRequest(&req)
	if err != nil {
		s.metrics.RecordError("upload", strings.ToLower(err.Code))
		s.logger.Warn(ctx, "Upload rejected", types.Fields{
			"id":       req.ID,
			"filename": req.Filename,
			"error":    err.Error(),
		})
		return nil, err
	}

	sum := sha256.Sum256(req.Data)
	checksum := hex.EncodeToString(sum[:])
	uploadedAt := s.now()
	key := s.generateKey(req.Folder, req.Filename, uploadedAt)

	metadata := storagetypes.ObjectMetadata{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"sha256":            checksum,
			"original-filename": req.Filename,
			"request-id":        req.ID,
		},
	}

	if err := s.storage.Put(ctx, "", key, bytes.NewReader(req.Data), metadata); err != nil {
		s.metrics.RecordError("upload", "storage_failed")
		s.logger.Error(ctx, "Failed to store upload", err, types.Fields{
			"id":  req.ID,
			"key": key,
		})
		return nil, domain.StorageFailed(err)
	}

	s.metrics.RecordSuccess("upload")
	s.metrics.RecordFileSize(fileType(contentType), int64(len(req.Data)))
	s.logger.Info(ctx, "File uploaded", types.Fields{
		"id":           req.ID,
		"key":          key,
		"size":         len(req.Data),
		"content_type": contentType,
	})

	return &domain.UploadResult{
		Key:         key,
		Size:        int64(len(req.Data)),
		ContentType: contentType,
		Checksum:    checksum,
		UploadedAt:  uploadedAt,
	}, nil
}

// validateRequest normalises the folder and returns the media type to store.
func (s *UploadService) validateRequest(req *domain.UploadRequest) (string, *domain.DomainError) {
	if len(req.Data) == 0 {
		return "", domain.Validation("The uploaded file is empty")
	}
	if s.config.MaxFileSize > 0 && int64(len(req.Data)) > s.config.MaxFileSize {
		return "", domain.PayloadTooLarge(int64(len(req.Data)), s.config.MaxFileSize)
	}

	folder := strings.Trim(req.Folder, "/ ")
	if folder == "" {
		folder = s.config.DefaultFolder
	}
	if !folderPattern.MatchString(folder) {
		return "", domain.Validation(fmt.Sprintf("Invalid folder %q", req.Folder))
	}
	req.Folder = folder

	contentType := mediaType(req.ContentType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mediaType(http.DetectContentType(req.Data))
	}
	if !s.allowed[contentType] {
		return "", domain.UnsupportedMediaType(contentType)
	}

	return contentType, nil
}

// generateKey builds <folder>/<yyyy-mm-dd>/<uuid>_<filename>.
func (s *UploadService) generateKey(folder, filename string, at time.Time) string {
	return path.Join(folder, at.Format("2006-01-02"), s.newID()+"_"+SanitizeFilename(filename))
}

// SanitizeFilename keeps the base name and replaces anything outside
// [A-Za-z0-9._-] with underscores.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")

	if len(name) > maxFilenameLength {
		ext := path.Ext(name)
		if len(ext) > 10 {
			ext = ""
		}
		name = name[:maxFilenameLength-len(ext)] + ext
	}
	if name == "" {
		return "file"
	}
	return name
}

func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

// fileType labels the size histogram.
func fileType(contentType string) string {
	switch {
	case strings.Contains(contentType, "pdf"):
		return "pdf"
	case strings.HasPrefix(contentType, "image/"):
		return "image"
	case strings.HasPrefix(contentType, "text/"):
		return "text"
	default:
		return "other"
	}
}
