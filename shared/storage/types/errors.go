package types

import "errors"

// Common storage errors
var (
	// ErrObjectNotFound is returned when an object is not found in storage
	ErrObjectNotFound = errors.New("object not found")

	// ErrInvalidKey is returned for empty keys or keys escaping their bucket
	ErrInvalidKey = errors.New("invalid object key")
)
