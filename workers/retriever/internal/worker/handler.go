package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"letreviewer/shared/config"
	"letreviewer/shared/handler"
	"letreviewer/shared/observability/types"
	"letreviewer/workers/retriever/internal/domain"
)

// RetrievalService defines the interface for retrieval operations
type RetrievalService interface {
	Retrieve(ctx context.Context, resource config.Resource) (*domain.Artifact, error)
}

// Catalogue resolves public resource names.
type Catalogue interface {
	Lookup(name string) (config.Resource, bool)
}

// RetrieverWorker implements handler.Worker. Successful retrievals become raw
// binary responses; failures become error responses whose message is shown
// to the caller.
type RetrieverWorker struct {
	service   RetrievalService
	catalogue Catalogue
	logger    types.Logger
	metrics   types.Metrics
}

var _ handler.Worker = (*RetrieverWorker)(nil)

// NewRetrieverWorker creates a new retriever worker
func NewRetrieverWorker(
	service RetrievalService,
	catalogue Catalogue,
	logger types.Logger,
	metrics types.Metrics,
) *RetrieverWorker {
	return &RetrieverWorker{
		service:   service,
		catalogue: catalogue,
		logger:    logger,
		metrics:   metrics,
	}
}

// Name returns the worker name
func (w *RetrieverWorker) Name() string {
	return config.WorkerRetriever
}

// Process serves one download request.
func (w *RetrieverWorker) Process(ctx context.Context, request handler.Request) (handler.Response, error) {
	w.metrics.StartOperation("worker_process")
	defer w.metrics.EndOperation("worker_process")

	startTime := time.Now()
	defer func() {
		w.metrics.RecordDuration("worker_process", time.Since(startTime).Seconds())
	}()

	var req domain.RetrieveRequest
	if len(request.Payload) > 0 {
		if err := request.Unmarshal(&req); err != nil {
			w.metrics.RecordError("worker_process", "invalid_payload")
			w.logger.Error(ctx, "Failed to parse request payload", err, types.Fields{
				"request_id": request.ID,
			})
			return handler.NewErrorResponse(
				request.ID,
				"INVALID_PAYLOAD",
				"Failed to parse download request",
				err.Error(),
			), nil
		}
	}

	resource, ok := w.catalogue.Lookup(req.Resource)
	if !ok {
		w.metrics.RecordError("worker_process", "unknown_resource")
		return w.errorResponse(request.ID, domain.UnknownResource(req.Resource)), nil
	}

	ctx = context.WithValue(ctx, types.ResourceKey, resource.Name)

	w.logger.Info(ctx, "Processing download request", types.Fields{
		"request_id": request.ID,
		"resource":   resource.Name,
	})

	artifact, err := w.service.Retrieve(ctx, resource)
	if err != nil {
		errorType := "processing_error"
		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) {
			errorType = "domain_error"
		}
		w.metrics.RecordError("worker_process", errorType)
		w.logger.Error(ctx, "Retrieval failed", err, types.Fields{
			"request_id": request.ID,
			"resource":   resource.Name,
		})

		if domainErr != nil {
			return w.errorResponse(request.ID, domainErr), nil
		}
		return handler.NewErrorResponse(
			request.ID,
			"PROCESSING_ERROR",
			"Failed to download the file",
			err.Error(),
		), nil
	}

	resp := handler.NewRawResponse(request.ID, &handler.RawBody{
		ContentType: artifact.ContentType,
		Headers: map[string]string{
			"Content-Disposition": fmt.Sprintf("attachment; filename=%q", artifact.Filename),
			"Cache-Control":       "no-cache, no-store, must-revalidate",
		},
		Body: artifact.Body,
	})
	resp.Metadata["resource"] = resource.Name
	resp.Metadata["attempts"] = strconv.Itoa(artifact.Attempts)

	w.metrics.RecordSuccess("worker_process")
	w.logger.Info(ctx, "Request processed successfully", types.Fields{
		"request_id": request.ID,
		"resource":   resource.Name,
		"size":       artifact.Size(),
		"attempts":   artifact.Attempts,
	})

	return resp, nil
}

func (w *RetrieverWorker) errorResponse(requestID string, err *domain.DomainError) handler.Response {
	details := ""
	if err.Err != nil {
		details = err.Err.Error()
	}
	resp := handler.NewErrorResponse(requestID, err.Code, err.Message, details)
	resp.Error.Retryable = err.Retryable
	return resp
}

// Health reports the worker as healthy; the upstream host is not probed.
func (w *RetrieverWorker) Health(ctx context.Context) error {
	w.metrics.RecordSuccess("health_check")
	return nil
}
