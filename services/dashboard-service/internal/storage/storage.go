// Package storage saves downloaded run and bug artifacts to the local
// filesystem or an S3 bucket.
package storage

import (
	"context"
	"fmt"

	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/config"
	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/model"
)

// ArtifactStore persists downloaded artifacts
type ArtifactStore interface {
	// Save writes the artifact under key and returns where it ended up
	Save(ctx context.Context, key string, artifact *model.Artifact) (string, error)
}

// NewArtifactStore creates the store selected by cfg.Type
func NewArtifactStore(cfg config.StorageConfig) (ArtifactStore, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocalStore(cfg.Local)
	case "s3":
		return NewS3Store(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
