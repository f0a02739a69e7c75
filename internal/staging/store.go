// Package staging 管理单次处理期间的本地临时文件（raw 与 processed 两个目录）。
package staging

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/elevatr/video-processing-service/internal/infrastructure/configloader"

	"github.com/go-kratos/kratos/v2/log"
)

// Store 是本地暂存区。文件名由对象名派生，不同视频的并发处理互不冲突。
type Store struct {
	rawDir       string
	processedDir string
	log          *log.Helper
}

// New 构造 Store。
func New(rawDir, processedDir string, logger log.Logger) *Store {
	return &Store{
		rawDir:       rawDir,
		processedDir: processedDir,
		log:          log.NewHelper(logger),
	}
}

// NewFromConfig 根据配置构造 Store 并创建目录。
func NewFromConfig(cfg configloader.StagingConfig, logger log.Logger) (*Store, error) {
	store := New(cfg.RawDir, cfg.ProcessedDir, logger)
	if err := store.EnsureDirectories(); err != nil {
		return nil, err
	}
	return store, nil
}

// EnsureDirectories 幂等地创建两个工作目录。
func (s *Store) EnsureDirectories() error {
	for _, dir := range []string{s.rawDir, s.processedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("staging: create directory %s: %w", dir, err)
		}
	}
	s.log.Infof("staging directories ready: raw=%s processed=%s", s.rawDir, s.processedDir)
	return nil
}

// RawPath 返回 raw 文件的本地路径。
func (s *Store) RawPath(name string) string {
	return filepath.Join(s.rawDir, filepath.Base(name))
}

// ProcessedPath 返回转码产物的本地路径。
func (s *Store) ProcessedPath(name string) string {
	return filepath.Join(s.processedDir, filepath.Base(name))
}

// DeleteIfExists 删除文件，文件不存在视为成功。
func (s *Store) DeleteIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("staging: delete %s: %w", path, err)
	}
	return nil
}

// Cleanup 删除一次处理对应的 raw 与 processed 文件。
// 删除失败只记录日志，不影响处理结果。
func (s *Store) Cleanup(ctx context.Context, rawName, processedName string) {
	for _, path := range []string{s.RawPath(rawName), s.ProcessedPath(processedName)} {
		if err := s.DeleteIfExists(path); err != nil {
			s.log.WithContext(ctx).Warnf("staging cleanup failed: path=%s err=%v", path, err)
		}
	}
}
