package storage

import (
	"letreviewer/shared/config"
	"letreviewer/shared/observability"
	"letreviewer/shared/storage/adapters/fs"
	"letreviewer/shared/storage/adapters/s3"
	"letreviewer/shared/storage/types"
)

func createS3Storage(cfg *config.Config, logger observability.Logger, metrics observability.Metrics) (types.ObjectStorage, error) {
	return s3.NewClient(&cfg.Storage, logger, metrics)
}

func createFSStorage(cfg *config.Config, logger observability.Logger, metrics observability.Metrics) (types.ObjectStorage, error) {
	return fs.NewStorage(cfg.Storage.BasePath, cfg.Storage.Bucket, logger, metrics)
}
