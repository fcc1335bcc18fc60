package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/config"
	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/model"
)

// LocalStore writes artifacts below a base directory
type LocalStore struct {
	basePath    string
	permissions os.FileMode
}

// NewLocalStore creates a new LocalStore
func NewLocalStore(cfg config.LocalStorageConfig) (*LocalStore, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "."
	}

	perms := uint64(0o644)
	if cfg.Permissions != "" {
		var err error
		perms, err = strconv.ParseUint(cfg.Permissions, 8, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid permissions format: %w", err)
		}
	}

	return &LocalStore{
		basePath:    basePath,
		permissions: os.FileMode(perms),
	}, nil
}

// Save writes the artifact to basePath/key. Absolute keys are used as is.
func (s *LocalStore) Save(ctx context.Context, key string, artifact *model.Artifact) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := key
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.basePath, key)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, artifact.Data, s.permissions); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	return path, nil
}
