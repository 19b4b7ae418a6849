package storage

import (
	"context"
	"fmt"

	licensingapp "github.com/umkm/backend/internal/application/licensing"
	"github.com/umkm/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewObjectStorage returns S3 storage when enabled, otherwise the stub.
// The S3 bucket is created on startup if missing.
func NewObjectStorage(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (licensingapp.ObjectStorageService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		logger.Warn("Object storage disabled, using stub storage")
		return NewStubObjectStorage(), nil
	}

	s, err := NewS3ObjectStorage(&cfg, WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if err := s.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket %s: %w", cfg.Bucket, err)
	}
	logger.Info("Object storage ready", zap.String("bucket", s.Bucket()), zap.String("endpoint", cfg.Endpoint))
	return s, nil
}
