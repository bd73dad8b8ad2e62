package worker

import (
	"context"
	"errors"
	"time"

	"letreviewer/shared/config"
	"letreviewer/shared/handler"
	"letreviewer/shared/observability/types"
	storagetypes "letreviewer/shared/storage/types"
	"letreviewer/workers/uploader/internal/domain"
)

// UploadService defines the interface for upload operations
type UploadService interface {
	Execute(ctx context.Context, req domain.UploadRequest) (*domain.UploadResult, error)
}

// UploaderWorker implements the handler.Worker interface
type UploaderWorker struct {
	uploadService UploadService
	storage       storagetypes.ObjectStorage
	logger        types.Logger
	metrics       types.Metrics
}

var _ handler.Worker = (*UploaderWorker)(nil)

// NewUploaderWorker creates a new uploader worker. storage is only used by
// the health check.
func NewUploaderWorker(
	uploadService UploadService,
	storage storagetypes.ObjectStorage,
	logger types.Logger,
	metrics types.Metrics,
) *UploaderWorker {
	return &UploaderWorker{
		uploadService: uploadService,
		storage:       storage,
		logger:        logger,
		metrics:       metrics,
	}
}

// Name returns the worker name
func (w *UploaderWorker) Name() string {
	return config.WorkerUploader
}

// Process handles one multipart upload.
func (w *UploaderWorker) Process(ctx context.Context, request handler.Request) (handler.Response, error) {
	w.metrics.StartOperation("worker_process")
	defer w.metrics.EndOperation("worker_process")

	startTime := time.Now()
	defer func() {
		w.metrics.RecordDuration("worker_process", time.Since(startTime).Seconds())
	}()

	w.logger.Info(ctx, "Processing upload request", types.Fields{
		"request_id":   request.ID,
		"request_type": request.Type,
	})

	var form handler.FormPayload
	if err := request.Unmarshal(&form); err != nil {
		w.metrics.RecordError("worker_process", "invalid_payload")
		w.logger.Error(ctx, "Failed to parse request payload", err, types.Fields{
			"request_id": request.ID,
		})
		return handler.NewErrorResponse(
			request.ID,
			domain.CodeValidation,
			"Expected a multipart/form-data upload",
			err.Error(),
		), nil
	}

	file, ok := form.File("file")
	if !ok {
		w.metrics.RecordError("worker_process", "missing_file")
		return handler.NewErrorResponse(request.ID, domain.CodeValidation, "Missing \"file\" form field", ""), nil
	}
	if len(form.Files) > 1 {
		w.metrics.RecordError("worker_process", "multiple_files")
		return handler.NewErrorResponse(request.ID, domain.CodeValidation, "Upload exactly one file per request", ""), nil
	}

	result, err := w.uploadService.Execute(ctx, domain.UploadRequest{
		ID:          request.ID,
		Filename:    file.Filename,
		ContentType: file.ContentType,
		Folder:      form.Fields["folder"],
		Data:        file.Data,
	})
	if err != nil {
		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) {
			w.metrics.RecordError("worker_process", "domain_error")
			details := ""
			if domainErr.Err != nil {
				details = domainErr.Err.Error()
			}
			resp := handler.NewErrorResponse(request.ID, domainErr.Code, domainErr.Message, details)
			resp.Error.Retryable = domainErr.Retryable
			return resp, nil
		}

		w.metrics.RecordError("worker_process", "processing_error")
		w.logger.Error(ctx, "Upload failed", err, types.Fields{"request_id": request.ID})
		return handler.NewErrorResponse(
			request.ID,
			"PROCESSING_ERROR",
			"Failed to process upload request",
			err.Error(),
		), nil
	}

	response, err := handler.NewSuccessResponse(request.ID, result)
	if err != nil {
		w.metrics.RecordError("worker_process", "response_creation")
		w.logger.Error(ctx, "Failed to create response", err, types.Fields{
			"request_id": request.ID,
		})
		return handler.NewErrorResponse(
			request.ID,
			"RESPONSE_ERROR",
			"Failed to create response",
			err.Error(),
		), nil
	}

	w.metrics.RecordSuccess("worker_process")
	w.logger.Info(ctx, "Request processed successfully", types.Fields{
		"request_id": request.ID,
		"key":        result.Key,
		"size":       result.Size,
	})

	return response, nil
}

// Health checks that object storage answers.
func (w *UploaderWorker) Health(ctx context.Context) error {
	if _, err := w.storage.Exists(ctx, "", ".health-check"); err != nil && !errors.Is(err, storagetypes.ErrObjectNotFound) {
		w.metrics.RecordError("health_check", "storage")
		return err
	}
	w.metrics.RecordSuccess("health_check")
	return nil
}
