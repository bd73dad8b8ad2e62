// Package fs implements types.ObjectStorage on the local filesystem. Buckets
// are directories under the base path; metadata lives in a JSON sidecar file.
package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"letreviewer/shared/observability"
	"letreviewer/shared/storage/types"
)

const metadataSuffix = ".metadata.json"

// Storage implements ObjectStorage using the local filesystem
type Storage struct {
	basePath      string
	defaultBucket string
	logger        observability.Logger
	metrics       observability.Metrics
}

var _ types.ObjectStorage = (*Storage)(nil)

// NewStorage creates the base directory if needed. defaultBucket is used
// when callers pass an empty bucket and may itself be empty.
func NewStorage(basePath, defaultBucket string, logger observability.Logger, metrics observability.Metrics) (*Storage, error) {
	if basePath == "" {
		return nil, errors.New("filesystem storage requires a base path")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base path: %w", err)
	}

	logger.Info(context.Background(), "filesystem storage initialized", observability.Fields{
		"base_path": basePath,
	})

	return &Storage{
		basePath:      basePath,
		defaultBucket: defaultBucket,
		logger:        logger.WithFields(observability.Fields{"component": "filesystem_storage"}),
		metrics:       metrics,
	}, nil
}

// Put writes the object through a temporary file so readers never observe a
// partial object.
func (s *Storage) Put(ctx context.Context, bucket, key string, reader io.Reader, metadata types.ObjectMetadata) error {
	start := time.Now()

	objectPath, err := s.objectPath(bucket, key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(objectPath), 0o755); err != nil {
		s.metrics.RecordError("fs_put", "mkdir")
		return fmt.Errorf("failed to create bucket directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(objectPath), ".upload-*")
	if err != nil {
		s.metrics.RecordError("fs_put", "create")
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, reader)
	if cErr := tmp.Close(); err == nil {
		err = cErr
	}
	if err != nil {
		s.metrics.RecordError("fs_put", "write")
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := os.Rename(tmp.Name(), objectPath); err != nil {
		s.metrics.RecordError("fs_put", "rename")
		return fmt.Errorf("failed to move object into place: %w", err)
	}

	metadata.ContentLength = written
	metadata.LastModified = time.Now().UTC()
	if err := s.saveMetadata(objectPath, metadata); err != nil {
		s.metrics.RecordError("fs_put", "metadata")
		return fmt.Errorf("failed to save metadata: %w", err)
	}

	s.metrics.RecordSuccess("fs_put")
	s.metrics.RecordFileSize("fs_put", written)
	s.metrics.RecordDuration("fs_put", time.Since(start).Seconds())
	s.logger.Debug(ctx, "object stored", observability.Fields{
		"bucket": bucket,
		"key":    key,
		"bytes":  written,
	})

	return nil
}

// Get opens an object for reading.
func (s *Storage) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	objectPath, err := s.objectPath(bucket, key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(objectPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.metrics.RecordError("fs_get", "not_found")
			return nil, types.ErrObjectNotFound
		}
		s.metrics.RecordError("fs_get", "open")
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	s.metrics.RecordSuccess("fs_get")
	return file, nil
}

// GetWithMetadata opens an object and loads its sidecar metadata.
func (s *Storage) GetWithMetadata(ctx context.Context, bucket, key string) (io.ReadCloser, *types.ObjectMetadata, error) {
	reader, err := s.Get(ctx, bucket, key)
	if err != nil {
		return nil, nil, err
	}

	objectPath, _ := s.objectPath(bucket, key)
	metadata, err := s.loadMetadata(objectPath)
	if err != nil {
		reader.Close()
		return nil, nil, fmt.Errorf("failed to load metadata: %w", err)
	}

	return reader, &metadata, nil
}

// Delete removes an object and its metadata.
func (s *Storage) Delete(ctx context.Context, bucket, key string) error {
	objectPath, err := s.objectPath(bucket, key)
	if err != nil {
		return err
	}

	if err := os.Remove(objectPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.metrics.RecordError("fs_delete", "remove")
		return fmt.Errorf("failed to delete object: %w", err)
	}
	_ = os.Remove(objectPath + metadataSuffix)

	s.metrics.RecordSuccess("fs_delete")
	s.logger.Debug(ctx, "object deleted", observability.Fields{"bucket": bucket, "key": key})
	return nil
}

// Exists checks if an object exists
func (s *Storage) Exists(ctx context.Context, bucket, key string) (bool, error) {
	objectPath, err := s.objectPath(bucket, key)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(objectPath)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
}

// List returns the objects of a bucket whose keys start with prefix.
func (s *Storage) List(ctx context.Context, bucket, prefix string) ([]types.ObjectInfo, error) {
	bucketPath := filepath.Join(s.basePath, s.bucketOrDefault(bucket))

	var objects []types.ObjectInfo
	err := filepath.WalkDir(bucketPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, metadataSuffix) || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}

		rel, err := filepath.Rel(bucketPath, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, types.ObjectInfo{
			Key:          key,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		s.metrics.RecordError("fs_list", "walk")
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	return objects, nil
}

func (s *Storage) bucketOrDefault(bucket string) string {
	if bucket == "" {
		return s.defaultBucket
	}
	return bucket
}

// objectPath resolves bucket/key below the base path and rejects keys that
// would escape it.
func (s *Storage) objectPath(bucket, key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return "", types.ErrInvalidKey
	}

	root := filepath.Join(s.basePath, s.bucketOrDefault(bucket))
	full := filepath.Join(root, filepath.FromSlash(key))

	rel, err := filepath.Rel(root, full)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %q", types.ErrInvalidKey, key)
	}
	return full, nil
}

func (s *Storage) saveMetadata(objectPath string, metadata types.ObjectMetadata) error {
	data, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	return os.WriteFile(objectPath+metadataSuffix, data, 0o644)
}

func (s *Storage) loadMetadata(objectPath string) (types.ObjectMetadata, error) {
	var metadata types.ObjectMetadata

	data, err := os.ReadFile(objectPath + metadataSuffix)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return metadata, nil
		}
		return metadata, err
	}

	err = json.Unmarshal(data, &metadata)
	return metadata, err
}
