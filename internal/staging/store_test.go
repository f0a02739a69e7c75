package staging

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/elevatr/video-processing-service/internal/infrastructure/configloader"

	"github.com/go-kratos/kratos/v2/log"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	root := t.TempDir()
	store, err := NewFromConfig(configloader.StagingConfig{
		RawDir:       filepath.Join(root, "raw-videos"),
		ProcessedDir: filepath.Join(root, "processed-videos"),
	}, log.NewStdLogger(io.Discard))
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	return store, root
}

func TestEnsureDirectoriesIdempotent(t *testing.T) {
	store, root := newTestStore(t)
	if err := store.EnsureDirectories(); err != nil {
		t.Fatalf("second EnsureDirectories: %v", err)
	}
	for _, dir := range []string{"raw-videos", "processed-videos"} {
		info, err := os.Stat(filepath.Join(root, dir))
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s, err=%v", dir, err)
		}
	}
}

func TestPathsStayInsideDirectories(t *testing.T) {
	store, root := newTestStore(t)
	if got, want := store.RawPath("u1-applicant-1.mp4"), filepath.Join(root, "raw-videos", "u1-applicant-1.mp4"); got != want {
		t.Fatalf("RawPath: expected %s, got %s", want, got)
	}
	if got, want := store.ProcessedPath("../escape.mp4"), filepath.Join(root, "processed-videos", "escape.mp4"); got != want {
		t.Fatalf("ProcessedPath: expected %s, got %s", want, got)
	}
}

func TestDeleteIfExists(t *testing.T) {
	store, _ := newTestStore(t)
	path := store.RawPath("u1-applicant-1.mp4")
	if err := os.WriteFile(path, []byte("raw"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := store.DeleteIfExists(path); err != nil {
		t.Fatalf("DeleteIfExists: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, stat err=%v", err)
	}
	if err := store.DeleteIfExists(path); err != nil {
		t.Fatalf("deleting a missing file should succeed: %v", err)
	}
}

func TestCleanupRemovesBothArtifacts(t *testing.T) {
	store, _ := newTestStore(t)
	raw := store.RawPath("u1-applicant-1.mp4")
	processed := store.ProcessedPath("processed-u1-applicant-1.mp4")
	for _, p := range []string{raw, processed} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}

	store.Cleanup(context.Background(), "u1-applicant-1.mp4", "processed-u1-applicant-1.mp4")

	for _, p := range []string{raw, processed} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Fatalf("expected %s removed, stat err=%v", p, err)
		}
	}
	// 只存在 raw 文件时同样不报错
	store.Cleanup(context.Background(), "u1-applicant-1.mp4", "processed-u1-applicant-1.mp4")
}
