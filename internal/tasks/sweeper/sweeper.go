// Package sweeper 周期性地将长时间停留在 processing 的视频记录标记为 failed。
//
// 失败记录依旧占用幂等键，同名对象不会被重新处理。
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/elevatr/video-processing-service/internal/infrastructure/configloader"
	"github.com/elevatr/video-processing-service/internal/repositories"
)

var _ transport.Server = (*Sweeper)(nil)

// StaleMarker 由 VideoRepository 实现。
type StaleMarker interface {
	MarkStaleFailed(ctx context.Context, cutoff time.Time, reason string, limit int) ([]string, error)
}

// Sweeper 按固定间隔执行巡检。
type Sweeper struct {
	store     StaleMarker
	interval  time.Duration
	maxAge    time.Duration
	batchSize int
	now       func() time.Time
	marked    prometheus.Counter
	log       *log.Helper

	mu   sync.Mutex
	stop chan struct{}
}

// New 构造 Sweeper。
func New(store StaleMarker, cfg configloader.SweeperConfig, reg prometheus.Registerer, logger log.Logger) (*Sweeper, error) {
	if store == nil {
		return nil, errors.New("sweeper: store is required")
	}
	if cfg.Interval.Std() <= 0 || cfg.MaxAge.Std() <= 0 {
		return nil, errors.New("sweeper: interval and max_age must be positive")
	}
	marked := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "elevatr",
		Subsystem: "sweeper",
		Name:      "marked_failed_total",
		Help:      "Video records marked failed after exceeding the processing age limit.",
	})
	if reg != nil {
		if err := reg.Register(marked); err != nil {
			return nil, err
		}
	}
	return &Sweeper{
		store:     store,
		interval:  cfg.Interval.Std(),
		maxAge:    cfg.MaxAge.Std(),
		batchSize: cfg.BatchSize,
		now:       time.Now,
		marked:    marked,
		log:       log.NewHelper(logger),
	}, nil
}

// Sweep 执行一次巡检，按批处理直到没有滞留记录。返回被标记的 id。
func (s *Sweeper) Sweep(ctx context.Context) ([]string, error) {
	cutoff := s.now().Add(-s.maxAge)
	reason := fmt.Sprintf("stale: processing exceeded %s", s.maxAge)

	var all []string
	for {
		ids, err := s.store.MarkStaleFailed(ctx, cutoff, reason, s.batchSize)
		if err != nil {
			return all, fmt.Errorf("sweeper: %w", err)
		}
		all = append(all, ids...)
		s.marked.Add(float64(len(ids)))
		if len(ids) == 0 || s.batchSize <= 0 || len(ids) < s.batchSize {
			break
		}
	}
	if len(all) > 0 {
		s.log.WithContext(ctx).Warnf("sweeper: marked %d stale video(s) failed: ids=%v", len(all), all)
	}
	return all, nil
}

// Start 阻塞运行巡检循环，直到 Stop 或 ctx 取消。
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	s.stop = make(chan struct{})
	stop := s.stop
	s.mu.Unlock()

	s.log.Infof("sweeper started: interval=%s max_age=%s", s.interval, s.maxAge)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.WithContext(ctx).Errorf("sweeper: sweep failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-stop:
			return nil
		case <-ticker.C:
		}
	}
}

// Stop 结束巡检循环。
func (s *Sweeper) Stop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.log.Info("sweeper stopped")
	return nil
}

// Provide 在启用巡检时装配 Sweeper，否则返回 nil。
func Provide(repo *repositories.VideoRepository, cfg configloader.SweeperConfig, reg prometheus.Registerer, logger log.Logger) (*Sweeper, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	return New(repo, cfg, reg, logger)
}
