package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bionicotaku/lingo-utils/gcpubsub"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport"

	"github.com/elevatr/video-processing-service/internal/infrastructure/configloader"
)

var _ transport.Server = (*Runner)(nil)

// handler 由 Worker 实现，Runner 只依赖这一方法。
type handler interface {
	HandleData(ctx context.Context, data []byte, attributes map[string]string) Result
}

// Runner 以拉取模式消费上传通知，与 HTTP push 入口共用同一个 Worker。
//
// 2xx/4xx 结论返回 nil（确认消息，重投不会改变结果）；5xx 结论返回错误，由订阅重投。
type Runner struct {
	subscriber gcpubsub.Subscriber
	handler    handler
	log        *log.Helper

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewRunner 构造 Runner。
func NewRunner(sub gcpubsub.Subscriber, h handler, logger log.Logger) (*Runner, error) {
	if sub == nil {
		return nil, errors.New("ingest: subscriber is required")
	}
	if h == nil {
		return nil, errors.New("ingest: handler is required")
	}
	return &Runner{subscriber: sub, handler: h, log: log.NewHelper(logger)}, nil
}

// Start 阻塞消费消息，直到 Stop 或 ctx 取消。
func (r *Runner) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()
	defer cancel()

	r.log.Info("ingest runner started")
	err := r.subscriber.Receive(ctx, r.processMessage)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("ingest: receive: %w", err)
	}
	return nil
}

// Stop 结束消费；正在处理的消息由 Receive 等待完成。
func (r *Runner) Stop(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
	r.log.Info("ingest runner stopped")
	return nil
}

func (r *Runner) processMessage(ctx context.Context, msg *gcpubsub.Message) error {
	if msg == nil {
		return nil
	}
	res := r.handler.HandleData(ctx, msg.Data, msg.Attributes)
	if !res.Outcome.Retryable() {
		return nil
	}
	r.log.WithContext(ctx).Warnf("ingest runner redeliver: video_id=%s outcome=%s", res.VideoID, res.Outcome)
	if res.Err != nil {
		return fmt.Errorf("ingest: %s: %w", res.Outcome, res.Err)
	}
	return fmt.Errorf("ingest: %s: %s", res.Outcome, res.Message)
}

// ProvideRunner 在配置了订阅时装配 Runner；未配置时返回 nil，服务仅使用 HTTP push 入口。
func ProvideRunner(ctx context.Context, cfg configloader.MessagingConfig, worker *Worker, logger log.Logger) (*Runner, func(), error) {
	if cfg.SubscriptionID == "" {
		return nil, func() {}, nil
	}

	projectID, err := configloader.ResolveProjectID(ctx, cfg.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("ingest: resolve pubsub project: %w", err)
	}
	component, cleanup, err := gcpubsub.NewComponent(ctx, gcpubsub.Config{
		ProjectID:        projectID,
		TopicID:          cfg.TopicID,
		SubscriptionID:   cfg.SubscriptionID,
		EmulatorEndpoint: cfg.EmulatorEndpoint,
	}, gcpubsub.Dependencies{Logger: logger})
	if err != nil {
		return nil, nil, fmt.Errorf("ingest: create pubsub component: %w", err)
	}

	runner, err := NewRunner(gcpubsub.ProvideSubscriber(component), worker, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return runner, cleanup, nil
}
