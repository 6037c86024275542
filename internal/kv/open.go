package kv

import (
	"context"
	"fmt"

	"github.com/debemdeboas/inkwell/internal/config"
	"github.com/debemdeboas/inkwell/internal/db"
	"github.com/debemdeboas/inkwell/internal/util/compression"
)

// Credentials are the S3 secrets, read from the environment by the caller.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
}

// Open builds the store selected by cfg.Backend. Files written by the fs backend
// are always gzip so they can be inspected with standard tools.
func Open(ctx context.Context, cfg config.StorageConfig, creds Credentials) (Store, error) {
	compressor, err := compression.New(cfg.Compression)
	if err != nil {
		return nil, fmt.Errorf(config.ErrInitializeStorageFmt, cfg.Backend, err)
	}

	kvLogger.Info().Str("backend", cfg.Backend).Str("compression", cfg.Compression).Msg("Opening backing store")

	switch cfg.Backend {
	case "memory":
		return NewMemoryStore(), nil

	case "sqlite":
		database := db.NewSQLite(cfg.Path)
		if err := database.InitDB(); err != nil {
			return nil, fmt.Errorf(config.ErrInitializeStorageFmt, cfg.Backend, err)
		}
		return NewSQLStore(database, compressor), nil

	case "fs":
		store, err := NewFSStore(cfg.Dir, compression.GzipCompressor{})
		if err != nil {
			return nil, fmt.Errorf(config.ErrInitializeStorageFmt, cfg.Backend, err)
		}
		return store, nil

	case "s3":
		store, err := NewS3Store(ctx, S3Options{
			Bucket:          cfg.S3.Bucket,
			Prefix:          cfg.S3.Prefix,
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			AccessKeyID:     creds.AccessKeyID,
			SecretAccessKey: creds.SecretAccessKey,
		}, compressor)
		if err != nil {
			return nil, fmt.Errorf(config.ErrInitializeStorageFmt, cfg.Backend, err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf(config.ErrUnknownBackendFmt, cfg.Backend)
	}
}
