package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pranjalb21/kaviosPix/internal/config"
	"go.uber.org/zap"
)

var ErrPresignUnsupported = errors.New("media store cannot presign urls")

// NewFromConfig builds the configured media store wrapped in a circuit
// breaker.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*BreakerStore, error) {
	var (
		store MediaStore
		err   error
	)
	switch cfg.Media.Driver {
	case "memory":
		logger.Warn("using in-memory media store, uploads will not survive a restart")
		store = NewMemoryStore(cfg.Media.PublicBaseURL)
	case "s3":
		store, err = NewS3Store(ctx, S3Options{
			Region:          cfg.AWS.Region,
			Bucket:          cfg.AWS.Bucket,
			Endpoint:        cfg.AWS.Endpoint,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			PublicBaseURL:   cfg.Media.PublicBaseURL,
		})
	case "minio":
		store, err = NewMinioStore(MinioOptions{
			Endpoint:      cfg.Minio.Endpoint,
			AccessKey:     cfg.Minio.AccessKey,
			SecretKey:     cfg.Minio.SecretKey,
			Bucket:        cfg.Minio.Bucket,
			UseSSL:        cfg.Minio.UseSSL,
			PublicBaseURL: cfg.Media.PublicBaseURL,
		})
	default:
		return nil, fmt.Errorf("unknown media driver: %s", cfg.Media.Driver)
	}
	if err != nil {
		return nil, err
	}
	return NewBreakerStore(store, BreakerSettings{
		MaxFailures: cfg.Breaker.MaxFailures,
		Interval:    secs(cfg.Breaker.IntervalSec),
		Timeout:     secs(cfg.Breaker.TimeoutSec),
	}, logger), nil
}

func secs(n int) time.Duration { return time.Duration(n) * time.Second }
