package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/elevatr/video-processing-service/internal/infrastructure/gcs"
	"github.com/elevatr/video-processing-service/internal/models/po"
	"github.com/elevatr/video-processing-service/internal/repositories"
	"github.com/elevatr/video-processing-service/internal/staging"
	"github.com/elevatr/video-processing-service/internal/tasks/ingest"
)

type fakeStatusStore struct {
	mu        sync.Mutex
	records   map[string]po.Video
	calls     int
	existsErr error
	// raceOnCreate 模拟 Exists 与 Create 之间被另一个调用抢先插入
	raceOnCreate bool
}

func newFakeStatusStore() *fakeStatusStore {
	return &fakeStatusStore{records: map[string]po.Video{}}
}

func (s *fakeStatusStore) Exists(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.existsErr != nil {
		return false, s.existsErr
	}
	_, ok := s.records[id]
	return ok, nil
}

func (s *fakeStatusStore) Create(_ context.Context, in repositories.CreateVideoInput) (*po.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.raceOnCreate {
		return nil, repositories.ErrVideoExists
	}
	if _, ok := s.records[in.ID]; ok {
		return nil, repositories.ErrVideoExists
	}
	v := po.Video{ID: in.ID, UID: in.UID, VideoType: in.VideoType, Status: in.Status, CreatedAt: time.Now()}
	s.records[in.ID] = v
	return &v, nil
}

func (s *fakeStatusStore) Update(_ context.Context, in repositories.UpdateVideoInput) (*po.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	v, ok := s.records[in.ID]
	if !ok {
		return nil, repositories.ErrVideoNotFound
	}
	if in.ExpectedStatus != nil && v.Status != *in.ExpectedStatus {
		return nil, fmt.Errorf("%w: id=%s current=%s", repositories.ErrStatusConflict, in.ID, v.Status)
	}
	if in.Status != nil {
		v.Status = *in.Status
	}
	if in.Filename != nil {
		f := *in.Filename
		v.Filename = &f
	}
	if in.Moderation != nil {
		m := *in.Moderation
		v.Moderation = &m
	}
	if in.CheckedAt != nil {
		c := *in.CheckedAt
		v.CheckedAt = &c
	}
	s.records[in.ID] = v
	return &v, nil
}

// markFailed 模拟巡检任务把滞留记录标记为 failed。
func (s *fakeStatusStore) markFailed(id, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.records[id]
	v.Status = po.VideoStatusFailed
	v.FailureReason = &reason
	s.records[id] = v
}

func (s *fakeStatusStore) get(id string) (po.Video, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.records[id]
	return v, ok
}

type call struct {
	op       string
	name     string
	category po.Category
	extra    string
}

type fakeVideoStore struct {
	mu          sync.Mutex
	calls       []call
	downloadErr error
	uploadErr   error
	relocateErr error
	// partial 为 true 时下载失败前先写入部分文件
	partial bool
}

func (f *fakeVideoStore) record(c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeVideoStore) Download(ctx context.Context, name string, category po.Category, localPath string) error {
	f.record(call{op: "download", name: name, category: category, extra: localPath})
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.downloadErr != nil {
		if f.partial {
			_ = os.WriteFile(localPath, []byte("partial"), 0o644)
		}
		return f.downloadErr
	}
	return os.WriteFile(localPath, []byte("raw video"), 0o644)
}

func (f *fakeVideoStore) Upload(_ context.Context, localPath, name string, category po.Category) error {
	f.record(call{op: "upload", name: name, category: category, extra: localPath})
	if _, err := os.Stat(localPath); err != nil {
		return err
	}
	return f.uploadErr
}

func (f *fakeVideoStore) Relocate(_ context.Context, name string, category po.Category, prefix string) error {
	f.record(call{op: "relocate", name: name, category: category, extra: prefix})
	return f.relocateErr
}

func (f *fakeVideoStore) URI(name string, category po.Category) (string, error) {
	return gcs.URI("elevatr-"+string(category)+"-processed-videos", name), nil
}

func (f *fakeVideoStore) RawBucket(category po.Category) (string, error) {
	if !category.Valid() {
		return "", fmt.Errorf("unknown category %q", category)
	}
	return "elevatr-" + string(category) + "-raw-videos", nil
}

func (f *fakeVideoStore) ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.op)
	}
	return out
}

func (f *fakeVideoStore) find(op string) (call, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c.op == op {
			return c, true
		}
	}
	return call{}, false
}

type fakeTranscoder struct {
	calls int
	err   error
}

func (f *fakeTranscoder) Convert(_ context.Context, in, out string) error {
	f.calls++
	if _, err := os.Stat(in); err != nil {
		return err
	}
	// 失败时同样留下部分输出，验证清理逻辑
	if werr := os.WriteFile(out, []byte("processed video"), 0o644); werr != nil {
		return werr
	}
	return f.err
}

type fakeAnalyzer struct {
	verdict po.Moderation
	err     error
	uris    []string
	// during 在返回结论前执行，用于模拟分析期间发生的并发变化
	during func()
}

func (f *fakeAnalyzer) Analyze(_ context.Context, uri string) (po.Moderation, error) {
	f.uris = append(f.uris, uri)
	if f.during != nil {
		f.during()
	}
	if f.err != nil {
		return "", f.err
	}
	return f.verdict, nil
}

type harness struct {
	worker     *ingest.Worker
	store      *fakeStatusStore
	videos     *fakeVideoStore
	transcoder *fakeTranscoder
	analyzer   *fakeAnalyzer
	registry   *prometheus.Registry
	rawDir     string
	procDir    string
}

var fixedNow = time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	h := &harness{
		store:      newFakeStatusStore(),
		videos:     &fakeVideoStore{},
		transcoder: &fakeTranscoder{},
		analyzer:   &fakeAnalyzer{verdict: po.ModerationClean},
		registry:   prometheus.NewRegistry(),
		rawDir:     filepath.Join(root, "raw-videos"),
		procDir:    filepath.Join(root, "processed-videos"),
	}
	logger := log.NewStdLogger(io.Discard)
	store := staging.New(h.rawDir, h.procDir, logger)
	if err := store.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	metrics, err := ingest.NewMetrics(h.registry)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	worker, err := ingest.NewWorker(ingest.WorkerParams{
		Store:             h.store,
		Videos:            h.videos,
		Transcoder:        h.transcoder,
		Analyzer:          h.analyzer,
		Staging:           store,
		AllowedExtensions: []string{"mp4", "mov", "avi"},
		RejectedPrefix:    "rejected",
		Metrics:           metrics,
		Logger:            logger,
		Clock:             func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}
	h.worker = worker
	return h
}

func (h *harness) assertStagingEmpty(t *testing.T) {
	t.Helper()
	for _, dir := range []string{h.rawDir, h.procDir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("read %s: %v", dir, err)
		}
		if len(entries) != 0 {
			t.Fatalf("expected %s to be empty, found %d entries", dir, len(entries))
		}
	}
}

var errBackend = errors.New("backend unavailable")
