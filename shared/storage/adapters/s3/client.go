// Package s3 implements types.ObjectStorage on Amazon S3 and S3-compatible
// stores (LocalStack, MinIO).
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"letreviewer/shared/config"
	"letreviewer/shared/observability"
	"letreviewer/shared/storage/types"
)

// Client implements the ObjectStorage interface for AWS S3
type Client struct {
	s3Client *s3.Client
	bucket   string
	region   string
	logger   observability.Logger
	metrics  observability.Metrics
}

var _ types.ObjectStorage = (*Client)(nil)

// NewClient creates an S3 client and makes sure the default bucket exists.
func NewClient(cfg *config.StorageConfig, logger observability.Logger, metrics observability.Metrics) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("invalid S3 configuration: bucket is required")
	}

	awsCfg, err := buildAWSConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3.Endpoint)
		}
		o.UsePathStyle = cfg.S3.UsePathStyle
	})

	c := &Client{
		s3Client: s3Client,
		bucket:   cfg.Bucket,
		region:   cfg.S3.Region,
		logger:   logger,
		metrics:  metrics,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.ensureBucketExists(ctx); err != nil {
		return nil, fmt.Errorf("failed to verify bucket existence: %w", err)
	}

	return c, nil
}

func (c *Client) bucketOrDefault(bucket string) string {
	if bucket == "" {
		return c.bucket
	}
	return bucket
}

func (c *Client) observe(op string, start time.Time, err error) {
	c.metrics.RecordDuration("s3_"+op, time.Since(start).Seconds())
	switch {
	case err == nil:
		c.metrics.RecordSuccess("s3_" + op)
	case errors.Is(err, types.ErrObjectNotFound):
		c.metrics.RecordError("s3_"+op, "not_found")
	default:
		c.metrics.RecordError("s3_"+op, "request_failed")
	}
}

// Put stores an object in S3. The content is buffered so the SDK can sign a
// seekable body with a known length.
func (c *Client) Put(ctx context.Context, bucket, key string, reader io.Reader, metadata types.ObjectMetadata) (err error) {
	start := time.Now()
	defer func() { c.observe("put", start, err) }()

	bucket = c.bucketOrDefault(bucket)
	if key == "" {
		return types.ErrInvalidKey
	}

	buf := &bytes.Buffer{}
	if _, err = io.Copy(buf, reader); err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(int64(buf.Len())),
	}
	if metadata.ContentType != "" {
		input.ContentType = aws.String(metadata.ContentType)
	}
	if metadata.ContentEncoding != "" {
		input.ContentEncoding = aws.String(metadata.ContentEncoding)
	}
	if metadata.CacheControl != "" {
		input.CacheControl = aws.String(metadata.CacheControl)
	}
	if len(metadata.UserMetadata) > 0 {
		input.Metadata = metadata.UserMetadata
	}

	if _, err = c.s3Client.PutObject(ctx, input); err != nil {
		c.logger.Error(ctx, "failed to put object", err, observability.Fields{
			"bucket": bucket,
			"key":    key,
		})
		return fmt.Errorf("failed to put object: %w", err)
	}

	c.metrics.RecordFileSize("s3_put", int64(buf.Len()))
	c.logger.Debug(ctx, "object stored", observability.Fields{
		"bucket": bucket,
		"key":    key,
		"size":   buf.Len(),
	})

	return nil
}

// Get retrieves an object from S3
func (c *Client) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	body, _, err := c.GetWithMetadata(ctx, bucket, key)
	return body, err
}

// GetWithMetadata retrieves an object along with its metadata
func (c *Client) GetWithMetadata(ctx context.Context, bucket, key string) (_ io.ReadCloser, _ *types.ObjectMetadata, err error) {
	start := time.Now()
	defer func() { c.observe("get", start, err) }()

	bucket = c.bucketOrDefault(bucket)

	result, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil, types.ErrObjectNotFound
		}
		c.logger.Error(ctx, "failed to get object", err, observability.Fields{
			"bucket": bucket,
			"key":    key,
		})
		return nil, nil, fmt.Errorf("failed to get object: %w", err)
	}

	metadata := &types.ObjectMetadata{
		ContentType:     aws.ToString(result.ContentType),
		ContentLength:   aws.ToInt64(result.ContentLength),
		ContentEncoding: aws.ToString(result.ContentEncoding),
		CacheControl:    aws.ToString(result.CacheControl),
		LastModified:    aws.ToTime(result.LastModified),
		ETag:            aws.ToString(result.ETag),
		UserMetadata:    result.Metadata,
	}

	return result.Body, metadata, nil
}

// Delete removes an object from S3
func (c *Client) Delete(ctx context.Context, bucket, key string) (err error) {
	start := time.Now()
	defer func() { c.observe("delete", start, err) }()

	bucket = c.bucketOrDefault(bucket)

	if _, err = c.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		c.logger.Error(ctx, "failed to delete object", err, observability.Fields{
			"bucket": bucket,
			"key":    key,
		})
		return fmt.Errorf("failed to delete object: %w", err)
	}

	c.logger.Debug(ctx, "object deleted", observability.Fields{
		"bucket": bucket,
		"key":    key,
	})

	return nil
}

// Exists checks if an object exists in S3
func (c *Client) Exists(ctx context.Context, bucket, key string) (bool, error) {
	bucket = c.bucketOrDefault(bucket)

	_, err := c.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}

	return true, nil
}

// List returns the objects under prefix, following pagination.
func (c *Client) List(ctx context.Context, bucket, prefix string) (_ []types.ObjectInfo, err error) {
	start := time.Now()
	defer func() { c.observe("list", start, err) }()

	bucket = c.bucketOrDefault(bucket)

	input := &s3.ListObjectsV2Input{Bucket: aws.String(bucket)}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var objects []types.ObjectInfo
	paginator := s3.NewListObjectsV2Paginator(c.s3Client, input)

	for paginator.HasMorePages() {
		page, pErr := paginator.NextPage(ctx)
		if pErr != nil {
			err = fmt.Errorf("failed to list objects: %w", pErr)
			return nil, err
		}

		for _, obj := range page.Contents {
			objects = append(objects, types.ObjectInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
				ETag:         aws.ToString(obj.ETag),
			})
		}
	}

	return objects, nil
}

// CreateBucket creates a bucket; an existing bucket is not an error.
func (c *Client) CreateBucket(ctx context.Context, bucket string) error {
	input := &s3.CreateBucketInput{Bucket: aws.String(bucket)}

	if c.region != "" && c.region != "us-east-1" {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(c.region),
		}
	}

	if _, err := c.s3Client.CreateBucket(ctx, input); err != nil {
		var exists *s3types.BucketAlreadyExists
		var owned *s3types.BucketAlreadyOwnedByYou
		if errors.As(err, &exists) || errors.As(err, &owned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	c.logger.Info(ctx, "bucket created", observability.Fields{"bucket": bucket})
	return nil
}

func (c *Client) ensureBucketExists(ctx context.Context) error {
	_, err := c.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	if err == nil {
		return nil
	}

	if isNotFoundError(err) {
		c.logger.Info(ctx, "bucket does not exist, attempting to create", observability.Fields{
			"bucket": c.bucket,
		})
		return c.CreateBucket(ctx, c.bucket)
	}
	return fmt.Errorf("failed to check bucket existence: %w", err)
}

func buildAWSConfig(cfg *config.StorageConfig) (aws.Config, error) {
	var optFns []func(*awsconfig.LoadOptions) error

	if cfg.S3.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(cfg.S3.Region))
	}

	if cfg.S3.AccessKeyID != "" && cfg.S3.SecretAccessKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, ""),
		))
	}

	if cfg.MaxRetries > 0 {
		optFns = append(optFns, awsconfig.WithRetryMaxAttempts(cfg.MaxRetries))
	}

	// the SDK needs a buildable client to apply AWS_CA_BUNDLE
	optFns = append(optFns, awsconfig.WithHTTPClient(awshttp.NewBuildableClient().WithTimeout(cfg.Timeout)))

	return awsconfig.LoadDefaultConfig(context.Background(), optFns...)
}

// isNotFoundError recognises the typed S3 errors and the bare 404 codes HEAD
// requests come back with.
func isNotFoundError(err error) bool {
	var nsk *s3types.NoSuchKey
	var nf *s3types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "NoSuchBucket":
			return true
		}
	}
	return false
}
