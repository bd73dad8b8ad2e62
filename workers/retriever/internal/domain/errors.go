package domain

import (
	"errors"
	"fmt"
)

// Error codes surfaced to callers.
const (
	CodeUpstreamUnavailable  = "UPSTREAM_UNAVAILABLE"
	CodeConfirmationRequired = "CONFIRMATION_REQUIRED"
	CodeTransportFailure     = "TRANSPORT_FAILURE"
	CodeArtifactTooLarge     = "ARTIFACT_TOO_LARGE"
	CodeUnknownResource      = "UNKNOWN_RESOURCE"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code      string
	Message   string
	Err       error
	Retryable bool
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s - %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError with the same code, so errors.Is works against
// the sentinels below.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error, retryable bool) *DomainError {
	return &DomainError{
		Code:      code,
		Message:   message,
		Err:       err,
		Retryable: retryable,
	}
}

// Sentinels for errors.Is.
var (
	ErrUpstreamUnavailable = &DomainError{
		Code:      CodeUpstreamUnavailable,
		Message:   "The file host did not return the file",
		Retryable: true,
	}

	ErrConfirmationRequired = &DomainError{
		Code:      CodeConfirmationRequired,
		Message:   "The file host asked for a confirmation that could not be completed; check the file's sharing settings",
		Retryable: false,
	}

	ErrTransportFailure = &DomainError{
		Code:      CodeTransportFailure,
		Message:   "Could not reach the file host",
		Retryable: true,
	}

	ErrArtifactTooLarge = &DomainError{
		Code:      CodeArtifactTooLarge,
		Message:   "The file is larger than the configured limit",
		Retryable: false,
	}

	ErrUnknownResource = &DomainError{
		Code:      CodeUnknownResource,
		Message:   "Unknown resource",
		Retryable: false,
	}
)

// wrap derives an error from a sentinel, keeping its code and message.
func wrap(sentinel *DomainError, err error) *DomainError {
	return NewDomainError(sentinel.Code, sentinel.Message, err, sentinel.Retryable)
}

// UpstreamUnavailable reports a non-2xx status from the given attempt.
func UpstreamUnavailable(attempt, status int) *DomainError {
	return wrap(ErrUpstreamUnavailable, fmt.Errorf("attempt %d returned status %d", attempt, status))
}

// ConfirmationRequired reports an interstitial page that could not be passed.
func ConfirmationRequired(reason string) *DomainError {
	return wrap(ErrConfirmationRequired, errors.New(reason))
}

// TransportFailure wraps a network error.
func TransportFailure(err error) *DomainError {
	return wrap(ErrTransportFailure, err)
}

// ArtifactTooLarge reports a body that exceeded limit bytes.
func ArtifactTooLarge(limit int64) *DomainError {
	return wrap(ErrArtifactTooLarge, fmt.Errorf("body exceeds %d bytes", limit))
}

// UnknownResource reports a resource name missing from the catalogue.
func UnknownResource(name string) *DomainError {
	return NewDomainError(CodeUnknownResource, fmt.Sprintf("Unknown resource %q", name), nil, false)
}
