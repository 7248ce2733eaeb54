package storage

import (
	"context"
	"errors"
	"fmt"

	"connect-service/internal/config"
)

var ErrForeignURL = errors.New("url not managed by this store")

// FileStore persists uploaded files and removes them again by their public URL.
type FileStore interface {
	// Save moves the file at srcPath into the store under kind/name and
	// returns its public URL. srcPath no longer exists on success.
	Save(ctx context.Context, kind, name, srcPath, contentType string) (string, error)
	Remove(ctx context.Context, url string) error
}

// New builds the store selected by cfg.Driver.
func New(cfg config.StorageConfig) (FileStore, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalStore(cfg.UploadDir, "/uploads")
	case "s3":
		return NewS3Store(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
