package domain

import "fmt"

// Error codes surfaced to callers.
const (
	CodeValidation           = "VALIDATION_ERROR"
	CodePayloadTooLarge      = "PAYLOAD_TOO_LARGE"
	CodeUnsupportedMediaType = "UNSUPPORTED_MEDIA_TYPE"
	CodeStorageFailed        = "STORAGE_FAILED"
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

// Is matches any DomainError with the same code.
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
	ErrValidation = &DomainError{
		Code:    CodeValidation,
		Message: "Invalid upload request",
	}

	ErrPayloadTooLarge = &DomainError{
		Code:    CodePayloadTooLarge,
		Message: "The file is larger than the upload limit",
	}

	ErrUnsupportedMediaType = &DomainError{
		Code:    CodeUnsupportedMediaType,
		Message: "This file type cannot be uploaded",
	}

	ErrStorageFailed = &DomainError{
		Code:      CodeStorageFailed,
		Message:   "Failed to store file",
		Retryable: true,
	}
)

// Validation reports a malformed request.
func Validation(message string) *DomainError {
	return NewDomainError(CodeValidation, message, nil, false)
}

// PayloadTooLarge reports a file over limit bytes.
func PayloadTooLarge(size, limit int64) *DomainError {
	return NewDomainError(CodePayloadTooLarge, ErrPayloadTooLarge.Message,
		fmt.Errorf("%d bytes exceeds the limit of %d", size, limit), false)
}

// UnsupportedMediaType reports a content type outside the allowlist.
func UnsupportedMediaType(contentType string) *DomainError {
	return NewDomainError(CodeUnsupportedMediaType, ErrUnsupportedMediaType.Message,
		fmt.Errorf("content type %q is not allowed", contentType), false)
}

// StorageFailed wraps an object storage error.
func StorageFailed(err error) *DomainError {
	return NewDomainError(CodeStorageFailed, ErrStorageFailed.Message, err, true)
}
