package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/config"
	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/model"
)

func TestLocalStore_Save(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(config.LocalStorageConfig{BasePath: dir, Permissions: "0600"})
	if err != nil {
		t.Fatal(err)
	}

	artifact := &model.Artifact{Filename: "download.zip", Data: []byte("PK\x03\x04")}
	location, err := store.Save(context.Background(), "bugs/1/download.zip", artifact)
	if err != nil {
		t.Fatal(err)
	}

	want := filepath.Join(dir, "bugs", "1", "download.zip")
	if location != want {
		t.Errorf("location = %q, want %q", location, want)
	}
	info, err := os.Stat(location)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %o, want 600", info.Mode().Perm())
	}
}

func TestLocalStore_AbsoluteKey(t *testing.T) {
	store, err := NewLocalStore(config.LocalStorageConfig{BasePath: "ignored"})
	if err != nil {
		t.Fatal(err)
	}

	target := filepath.Join(t.TempDir(), "conflict.dot")
	location, err := store.Save(context.Background(), target, &model.Artifact{Data: []byte("digraph {}")})
	if err != nil {
		t.Fatal(err)
	}
	if location != target {
		t.Errorf("location = %q, want %q", location, target)
	}
}

func TestNewLocalStore_InvalidPermissions(t *testing.T) {
	if _, err := NewLocalStore(config.LocalStorageConfig{Permissions: "rw-"}); err == nil {
		t.Error("expected error for non-octal permissions")
	}
}

func TestNewArtifactStore(t *testing.T) {
	if _, err := NewArtifactStore(config.StorageConfig{Type: "ftp"}); err == nil {
		t.Error("expected error for unknown storage type")
	}
	if _, err := NewArtifactStore(config.StorageConfig{Type: "s3"}); err == nil {
		t.Error("expected error for s3 without bucket")
	}

	store, err := NewArtifactStore(config.StorageConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := store.(*LocalStore); !ok {
		t.Errorf("default store is %T, want *LocalStore", store)
	}
}

func TestS3Store_Save(t *testing.T) {
	var (
		mu      sync.Mutex
		method  string
		urlPath string
		body    string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		method, urlPath, body = r.Method, r.URL.Path, string(data)
		mu.Unlock()
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store, err := NewS3Store(config.S3StorageConfig{
		Bucket:    "artifacts",
		Region:    "us-east-1",
		Endpoint:  server.URL,
		AccessKey: "key",
		SecretKey: "secret",
		Prefix:    "dbtest",
	})
	if err != nil {
		t.Fatal(err)
	}

	artifact := &model.Artifact{ContentType: "application/zip", Data: []byte("zipdata")}
	location, err := store.Save(context.Background(), "runs/2/download.zip", artifact)
	if err != nil {
		t.Fatal(err)
	}

	if location != "s3://artifacts/dbtest/runs/2/download.zip" {
		t.Errorf("location = %q", location)
	}
	mu.Lock()
	defer mu.Unlock()
	if method != http.MethodPut || urlPath != "/artifacts/dbtest/runs/2/download.zip" {
		t.Errorf("request = %s %s", method, urlPath)
	}
	if body != "zipdata" {
		t.Errorf("body = %q", body)
	}
}
