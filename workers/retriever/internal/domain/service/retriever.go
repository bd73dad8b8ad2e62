package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"letreviewer/shared/config"
	"letreviewer/shared/observability/types"
	"letreviewer/workers/retriever/internal/domain"
)

// Retriever fetches a resource from the file host, passing the virus-scan
// warning page when the host shows one.
type Retriever struct {
	client    domain.HTTPClient
	extractor domain.TokenExtractor
	config    config.RetrieverConfig
	logger    types.Logger
	metrics   types.Metrics
}

// NewRetriever creates a Retriever. A nil extractor falls back to the regex
// extractor.
func NewRetriever(
	client domain.HTTPClient,
	extractor domain.TokenExtractor,
	cfg config.RetrieverConfig,
	logger types.Logger,
	metrics types.Metrics,
) *Retriever {
	if extractor == nil {
		extractor = RegexTokenExtractor{}
	}
	return &Retriever{
		client:    client,
		extractor: extractor,
		config:    cfg,
		logger:    logger,
		metrics:   metrics,
	}
}

// Retrieve runs the fetch. At most two outbound calls are made, one at a
// time: the primary fetch and, when the host answers with a warning page
// carrying a token, the confirmed fetch.
func (r *Retriever) Retrieve(ctx context.Context, resource config.Resource) (*domain.Artifact, error) {
	r.metrics.StartOperation("retrieve")
	defer r.metrics.EndOperation("retrieve")

	start := time.Now()
	defer func() {
		r.metrics.RecordDuration("retrieve", time.Since(start).Seconds())
	}()

	artifact, err := r.retrieve(ctx, resource)
	if err != nil {
		r.metrics.RecordError("retrieve", errorType(err))
		r.logger.Warn(ctx, "Retrieval failed", types.Fields{
			"resource": resource.Name,
			"error":    err.Error(),
		})
		return nil, err
	}

	r.metrics.RecordSuccess("retrieve")
	r.metrics.RecordFileSize("artifact", artifact.Size())
	r.logger.Info(ctx, "Resource retrieved", types.Fields{
		"resource": resource.Name,
		"attempts": artifact.Attempts,
		"size":     artifact.Size(),
	})

	return artifact, nil
}

func (r *Retriever) retrieve(ctx context.Context, resource config.Resource) (*domain.Artifact, error) {
	state := domain.StateInit
	transition := func(next domain.RetrievalState, fields types.Fields) {
		if fields == nil {
			fields = types.Fields{}
		}
		fields["resource"] = resource.Name
		fields["from"] = state.String()
		fields["to"] = next.String()
		r.logger.Debug(ctx, "Retrieval state changed", fields)
		state = next
	}
	fail := func(err error) (*domain.Artifact, error) {
		transition(domain.StateFailed, types.Fields{"error": err.Error()})
		return nil, err
	}

	primaryURL := fmt.Sprintf(r.config.URLTemplate, url.QueryEscape(resource.ID))

	resp, err := r.fetch(ctx, domain.RetrievalRequest{ResourceID: resource.ID, Attempt: 1}, primaryURL)
	if err != nil {
		return fail(err)
	}
	transition(domain.StateFetchedPrimary, types.Fields{
		"status":       resp.StatusCode,
		"content_type": resp.ContentType,
	})

	if !resp.IsSuccess() {
		return fail(domain.UpstreamUnavailable(1, resp.StatusCode))
	}

	attempts := 1
	if resp.IsHTML() {
		token, ok := r.extractor.Extract(resp.Body)
		if !ok {
			return fail(domain.ConfirmationRequired("warning page carried no confirmation token"))
		}
		transition(domain.StateNeedsConfirmation, nil)
		r.metrics.RecordSuccess("confirmation")

		confirmedURL, err := withQueryParam(primaryURL, r.config.ConfirmParam, token.Value)
		if err != nil {
			return fail(domain.TransportFailure(err))
		}

		resp, err = r.fetch(ctx, domain.RetrievalRequest{ResourceID: resource.ID, Attempt: 2}, confirmedURL)
		if err != nil {
			return fail(err)
		}
		attempts = 2
		transition(domain.StateFetchedConfirmed, types.Fields{
			"status":       resp.StatusCode,
			"content_type": resp.ContentType,
		})

		if !resp.IsSuccess() {
			return fail(domain.UpstreamUnavailable(2, resp.StatusCode))
		}
		if resp.IsHTML() {
			return fail(domain.ConfirmationRequired("confirmed request still returned a page"))
		}
	}

	artifact := &domain.Artifact{
		ResourceID:  resource.ID,
		ContentType: r.config.ContentType,
		Filename:    resource.Filename,
		Body:        resp.Body,
		Attempts:    attempts,
	}
	transition(domain.StateDone, types.Fields{"size": artifact.Size()})
	artifact.State = state

	return artifact, nil
}

// fetch performs one bounded outbound call. Errors from the client that are
// already domain errors pass through; everything else is a transport failure.
func (r *Retriever) fetch(ctx context.Context, req domain.RetrievalRequest, target string) (*domain.UpstreamResponse, error) {
	if r.config.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.FetchTimeout)
		defer cancel()
	}

	r.logger.Debug(ctx, "Fetching resource", types.Fields{
		"resource_id": req.ResourceID,
		"attempt":     req.Attempt,
	})

	resp, err := r.client.Fetch(ctx, target, r.headers())
	if err != nil {
		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) {
			return nil, domainErr
		}
		return nil, domain.TransportFailure(err)
	}
	return resp, nil
}

func (r *Retriever) headers() map[string]string {
	headers := make(map[string]string, len(r.config.Headers)+1)
	for k, v := range r.config.Headers {
		headers[k] = v
	}
	if r.config.UserAgent != "" {
		headers["User-Agent"] = r.config.UserAgent
	}
	return headers
}

func withQueryParam(raw, key, value string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid upstream url: %w", err)
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func errorType(err error) string {
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return strings.ToLower(domainErr.Code)
	}
	return "unknown"
}
