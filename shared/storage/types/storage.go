// Package types declares the object storage contract shared by the workers
// and its adapters.
package types

import (
	"context"
	"io"
	"time"
)

// ObjectMetadata describes a stored object.
type ObjectMetadata struct {
	ContentType     string            `json:"content_type"`
	ContentLength   int64             `json:"content_length"`
	ContentEncoding string            `json:"content_encoding,omitempty"`
	CacheControl    string            `json:"cache_control,omitempty"`
	LastModified    time.Time         `json:"last_modified"`
	ETag            string            `json:"etag,omitempty"`
	UserMetadata    map[string]string `json:"user_metadata,omitempty"`
}

// ObjectInfo is one entry of a listing.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
}

// ObjectStorage abstracts the object store. An empty bucket selects the
// configured default bucket.
type ObjectStorage interface {
	// Put stores the reader's content under key.
	Put(ctx context.Context, bucket, key string, reader io.Reader, metadata ObjectMetadata) error

	// Get opens the object for reading. Missing objects yield ErrObjectNotFound.
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)

	// GetWithMetadata opens the object and returns its metadata.
	GetWithMetadata(ctx context.Context, bucket, key string) (io.ReadCloser, *ObjectMetadata, error)

	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, bucket, key string) error

	// Exists reports whether the object exists.
	Exists(ctx context.Context, bucket, key string) (bool, error)

	// List returns the objects whose key starts with prefix.
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
}
