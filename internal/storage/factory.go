package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stacklok/toolhive-catalog/internal/config"
)

// NewStore creates the byte store selected by the storage configuration
func NewStore(ctx context.Context, cfg *config.StorageConfig, secrets config.Secrets) (BlobStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config cannot be nil")
	}

	switch cfg.Type {
	case config.StorageTypeFile:
		slog.Info("Creating file store", "base_dir", cfg.File.BaseDir)
		return NewFileStore(cfg.File.BaseDir)
	case config.StorageTypeMemory:
		slog.Warn("Using in-memory store, record sets will not survive a restart")
		return NewMemoryStore(), nil
	case config.StorageTypeGCS:
		slog.Info("Creating GCS store", "bucket", cfg.GCS.Bucket, "prefix", cfg.GCS.Prefix)
		return NewGCSStore(ctx, GCSOptions{
			Bucket:   cfg.GCS.Bucket,
			Prefix:   cfg.GCS.Prefix,
			Endpoint: cfg.GCS.Endpoint,
		})
	case config.StorageTypeRedis:
		slog.Info("Creating Redis store", "address", cfg.Redis.Address, "db", cfg.Redis.DB)
		return NewRedisStore(ctx, RedisOptions{
			Address:   cfg.Redis.Address,
			Password:  secrets.RedisPassword,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
	case config.StorageTypePostgres:
		pg := cfg.Postgres
		slog.Info("Creating PostgreSQL store", "host", pg.Host, "database", pg.Database)
		return NewPostgresStore(ctx, PostgresOptions{
			Host:     pg.Host,
			Port:     pg.Port,
			User:     pg.User,
			Password: secrets.PostgresPassword,
			Database: pg.Database,
			SSLMode:  pg.SSLMode,
			MaxConns: pg.MaxConns,
		})
	case config.StorageTypeS3:
		slog.Info("Creating S3 store", "bucket", cfg.S3.Bucket, "prefix", cfg.S3.Prefix)
		return NewS3Store(ctx, S3Options{
			Bucket:       cfg.S3.Bucket,
			Prefix:       cfg.S3.Prefix,
			Region:       cfg.S3.Region,
			Endpoint:     cfg.S3.Endpoint,
			UsePathStyle: cfg.S3.UsePathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
