package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/elevatr/video-processing-service/internal/infrastructure/gcs"
	"github.com/elevatr/video-processing-service/internal/models/po"
	"github.com/elevatr/video-processing-service/internal/repositories"
)

const tracerName = "github.com/elevatr/video-processing-service/internal/tasks/ingest"

// ErrBucketMismatch 表示通知的来源 bucket 不是该类别的 raw bucket。
var ErrBucketMismatch = errors.New("ingest: notification bucket does not match category")

// StatusStore 是视频状态库的最小接口。
type StatusStore interface {
	Exists(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, input repositories.CreateVideoInput) (*po.Video, error)
	Update(ctx context.Context, input repositories.UpdateVideoInput) (*po.Video, error)
}

// VideoStore 是远端视频存储的最小接口。
type VideoStore interface {
	Download(ctx context.Context, objectName string, category po.Category, localPath string) error
	Upload(ctx context.Context, localPath, objectName string, category po.Category) error
	Relocate(ctx context.Context, objectName string, category po.Category, prefix string) error
	URI(objectName string, category po.Category) (string, error)
	RawBucket(category po.Category) (string, error)
}

// Transcoder 将本地 raw 文件转码为 processed 文件。
type Transcoder interface {
	Convert(ctx context.Context, inputPath, outputPath string) error
}

// Analyzer 对已发布视频给出审核结论。
type Analyzer interface {
	Analyze(ctx context.Context, uri string) (po.Moderation, error)
}

// Staging 是本地暂存区。
type Staging interface {
	RawPath(name string) string
	ProcessedPath(name string) string
	Cleanup(ctx context.Context, rawName, processedName string)
}

// WorkerParams 注入构建 Worker 所需的依赖。
type WorkerParams struct {
	Store             StatusStore
	Videos            VideoStore
	Transcoder        Transcoder
	Analyzer          Analyzer
	Staging           Staging
	AllowedExtensions []string
	RejectedPrefix    string
	Metrics           *Metrics
	Logger            log.Logger
	Clock             func() time.Time
}

// Worker 驱动单个视频走完整条流水线。除注入的客户端外不持有共享状态，可被并发调用。
type Worker struct {
	store          StatusStore
	videos         VideoStore
	transcoder     Transcoder
	analyzer       Analyzer
	staging        Staging
	allowed        []string
	rejectedPrefix string
	metrics        *Metrics
	tracer         trace.Tracer
	now            func() time.Time
	log            *log.Helper
}

// NewWorker 构造 Worker。
func NewWorker(p WorkerParams) (*Worker, error) {
	switch {
	case p.Store == nil:
		return nil, errors.New("ingest: status store is required")
	case p.Videos == nil:
		return nil, errors.New("ingest: video store is required")
	case p.Transcoder == nil:
		return nil, errors.New("ingest: transcoder is required")
	case p.Analyzer == nil:
		return nil, errors.New("ingest: analyzer is required")
	case p.Staging == nil:
		return nil, errors.New("ingest: staging store is required")
	case p.RejectedPrefix == "":
		return nil, errors.New("ingest: rejected prefix is required")
	}
	logger := p.Logger
	if logger == nil {
		logger = log.DefaultLogger
	}
	clock := p.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Worker{
		store:          p.Store,
		videos:         p.Videos,
		transcoder:     p.Transcoder,
		analyzer:       p.Analyzer,
		staging:        p.Staging,
		allowed:        append([]string(nil), p.AllowedExtensions...),
		rejectedPrefix: p.RejectedPrefix,
		metrics:        p.Metrics,
		tracer:         otel.Tracer(tracerName),
		now:            clock,
		log:            log.NewHelper(logger),
	}, nil
}

// HandlePush 处理 HTTP push 信封。
func (w *Worker) HandlePush(ctx context.Context, body []byte) Result {
	n, err := DecodePush(body)
	if err != nil {
		return w.finish(ctx, decodeFailure(err))
	}
	return w.Handle(ctx, n)
}

// HandleData 处理拉取模式下的消息体与属性。
func (w *Worker) HandleData(ctx context.Context, data []byte, attributes map[string]string) Result {
	n, err := DecodeData(data, attributes)
	if err != nil {
		return w.finish(ctx, decodeFailure(err))
	}
	return w.Handle(ctx, n)
}

// Handle 执行一次完整处理。
//
// 调用方的取消信号不会传入流水线：一旦开始，转码与审核都运行到自然结束。
func (w *Worker) Handle(ctx context.Context, n *Notification) Result {
	if n == nil {
		return w.finish(ctx, decodeFailure(fmt.Errorf("%w: nil notification", ErrDecode)))
	}

	runID := uuid.NewString()
	ctx, span := w.tracer.Start(context.WithoutCancel(ctx), "ingest.Handle", trace.WithAttributes(
		attribute.String("ingest.run_id", runID),
		attribute.String("ingest.object", n.Name),
		attribute.String("ingest.message_id", n.MessageID),
	))
	defer span.End()
	defer w.metrics.trackInflight()()

	res := w.run(ctx, runID, n)
	span.SetAttributes(
		attribute.String("ingest.video_id", res.VideoID),
		attribute.String("ingest.outcome", res.Outcome.String()),
	)
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Message)
	}
	return w.finish(ctx, res)
}

func (w *Worker) run(ctx context.Context, runID string, n *Notification) Result {
	if !n.Finalized() {
		w.log.WithContext(ctx).Infof("ingest: ignore event type=%s object=%s", n.EventType, n.Name)
		return Result{Outcome: OutcomeIgnored, State: StateDone, Message: "Ignored event " + n.EventType}
	}

	ref, err := ParseObjectName(n.Name, w.allowed)
	if err != nil {
		return decodeFailure(err)
	}
	if err := w.checkBucket(ref.Category, n.Bucket); err != nil {
		return decodeFailure(err)
	}

	r := &pipeline{w: w, ref: ref, state: StateReceived}
	w.log.WithContext(ctx).Infof("ingest: received run_id=%s video_id=%s object=%s category=%s bucket=%s", runID, ref.ID, ref.Name, ref.Category, n.Bucket)

	if res, ok := r.claim(ctx); !ok {
		return res
	}

	// 占位成功后，无论成败都清理本地文件
	defer w.staging.Cleanup(ctx, ref.Name, ref.ProcessedName)

	steps := []struct {
		state State
		fn    func(context.Context) Result
	}{
		{StateDownloading, r.download},
		{StateTranscoding, r.transcode},
		{StateUploading, r.upload},
		{StateAnalyzing, r.analyze},
		{StateFinalizing, r.finalize},
	}
	for _, step := range steps {
		r.state = step.state
		start := time.Now()
		res := step.fn(ctx)
		w.metrics.observeStep(step.state, time.Since(start))
		if res.Err != nil {
			res.State = StateFailed
			res.FailedAt = step.state
			res.VideoID = ref.ID
			return res
		}
	}

	r.state = StateDone
	return Result{Outcome: OutcomeSuccess, State: StateDone, VideoID: ref.ID, Message: successMessage}
}

func (w *Worker) finish(ctx context.Context, res Result) Result {
	w.metrics.observeResult(res.Outcome)
	helper := w.log.WithContext(ctx)
	switch {
	case res.Err == nil:
		helper.Infof("ingest: finished video_id=%s outcome=%s", res.VideoID, res.Outcome)
	case res.Outcome.Retryable():
		helper.Errorf("ingest: failed video_id=%s step=%s outcome=%s err=%v", res.VideoID, res.FailedAt, res.Outcome, res.Err)
	default:
		helper.Warnf("ingest: rejected video_id=%s step=%s outcome=%s err=%v", res.VideoID, res.FailedAt, res.Outcome, res.Err)
	}
	return res
}

// checkBucket 拒绝来源 bucket 与文件名类别不一致的通知；通知未携带 bucket 时跳过。
func (w *Worker) checkBucket(category po.Category, bucket string) error {
	if bucket == "" {
		return nil
	}
	want, err := w.videos.RawBucket(category)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBucketMismatch, err)
	}
	if bucket != want {
		return fmt.Errorf("%w: got %s, want %s for %s", ErrBucketMismatch, bucket, want, category)
	}
	return nil
}

func decodeFailure(err error) Result {
	return Result{
		Outcome:  OutcomeBadRequest,
		State:    StateFailed,
		FailedAt: StateReceived,
		Message:  "Bad Request: invalid notification payload",
		Err:      err,
	}
}

// pipeline 保存一次运行的路由信息与当前状态。
type pipeline struct {
	w          *Worker
	ref        ObjectRef
	state      State
	moderation po.Moderation
}

func (p *pipeline) fail(outcome Outcome, msg string, err error) Result {
	return Result{Outcome: outcome, Message: msg, Err: err}
}

// claim 检查幂等记录并以 processing 状态占位。Create 的唯一约束是真正的裁决点。
func (p *pipeline) claim(ctx context.Context) (Result, bool) {
	duplicate := Result{
		Outcome:  OutcomeDuplicate,
		State:    StateFailed,
		FailedAt: StateReceived,
		VideoID:  p.ref.ID,
		Message:  "Bad Request: video is already processing or processed",
	}

	exists, err := p.w.store.Exists(ctx, p.ref.ID)
	if err != nil {
		return Result{
			Outcome: OutcomeInternal, State: StateFailed, FailedAt: StateReceived, VideoID: p.ref.ID,
			Message: "Internal error: status lookup failed", Err: fmt.Errorf("ingest: check status: %w", err),
		}, false
	}
	if exists {
		duplicate.Err = fmt.Errorf("ingest: %w", repositories.ErrVideoExists)
		return duplicate, false
	}

	_, err = p.w.store.Create(ctx, repositories.CreateVideoInput{
		ID:        p.ref.ID,
		UID:       p.ref.UID,
		VideoType: p.ref.Category,
		Status:    po.VideoStatusProcessing,
	})
	if err != nil {
		if errors.Is(err, repositories.ErrVideoExists) {
			duplicate.Err = fmt.Errorf("ingest: %w", err)
			return duplicate, false
		}
		return Result{
			Outcome: OutcomeInternal, State: StateFailed, FailedAt: StateReceived, VideoID: p.ref.ID,
			Message: "Internal error: status create failed", Err: fmt.Errorf("ingest: create status: %w", err),
		}, false
	}
	return Result{}, true
}

func (p *pipeline) download(ctx context.Context) Result {
	err := p.w.videos.Download(ctx, p.ref.Name, p.ref.Category, p.w.staging.RawPath(p.ref.Name))
	switch {
	case err == nil:
		return Result{}
	case errors.Is(err, gcs.ErrObjectNotFound):
		return p.fail(OutcomeNotFound, "Not Found: raw video does not exist", fmt.Errorf("ingest: download: %w", err))
	default:
		return p.fail(OutcomeInternal, "Internal error: download failed", fmt.Errorf("ingest: download: %w", err))
	}
}

func (p *pipeline) transcode(ctx context.Context) Result {
	raw := p.w.staging.RawPath(p.ref.Name)
	out := p.w.staging.ProcessedPath(p.ref.ProcessedName)
	if err := p.w.transcoder.Convert(ctx, raw, out); err != nil {
		return p.fail(OutcomeInternal, "Internal error: transcoding failed", fmt.Errorf("ingest: transcode: %w", err))
	}
	return Result{}
}

func (p *pipeline) upload(ctx context.Context) Result {
	out := p.w.staging.ProcessedPath(p.ref.ProcessedName)
	if err := p.w.videos.Upload(ctx, out, p.ref.ProcessedName, p.ref.Category); err != nil {
		return p.fail(OutcomeInternal, "Internal error: upload failed", fmt.Errorf("ingest: upload: %w", err))
	}
	return Result{}
}

func (p *pipeline) analyze(ctx context.Context) Result {
	uri, err := p.w.videos.URI(p.ref.ProcessedName, p.ref.Category)
	if err != nil {
		return p.fail(OutcomeInternal, "Internal error: analysis failed", fmt.Errorf("ingest: resolve uri: %w", err))
	}
	verdict, err := p.w.analyzer.Analyze(ctx, uri)
	if err != nil {
		return p.fail(OutcomeInternal, "Internal error: analysis failed", fmt.Errorf("ingest: analyze: %w", err))
	}
	p.moderation = verdict
	return Result{}
}

func (p *pipeline) finalize(ctx context.Context) Result {
	status := po.VideoStatusProcessed
	filename := p.ref.ProcessedName
	moderation := p.moderation
	checkedAt := p.w.now().UTC()

	expected := po.VideoStatusProcessing

	_, err := p.w.store.Update(ctx, repositories.UpdateVideoInput{
		ID:             p.ref.ID,
		ExpectedStatus: &expected,
		Status:         &status,
		Filename:       &filename,
		Moderation:     &moderation,
		CheckedAt:      &checkedAt,
	})
	if err != nil && !errors.Is(err, repositories.ErrStatusConflict) {
		return p.fail(OutcomeInternal, "Internal error: status update failed", fmt.Errorf("ingest: update status: %w", err))
	}

	// 记录已被巡检改为 failed 时不再推进状态，但被拒视频仍需移出公开路径
	if moderation == po.ModerationRejected {
		if rerr := p.w.videos.Relocate(ctx, p.ref.ProcessedName, p.ref.Category, p.w.rejectedPrefix); rerr != nil {
			return p.fail(OutcomeInternal, "Internal error: relocation failed", fmt.Errorf("ingest: relocate: %w", rerr))
		}
		p.w.log.WithContext(ctx).Warnf("ingest: video rejected by moderation video_id=%s moved_to=%s/", p.ref.ID, p.w.rejectedPrefix)
	}
	if err != nil {
		return p.fail(OutcomeInternal, "Internal error: video record is no longer processing", fmt.Errorf("ingest: update status: %w", err))
	}
	return Result{}
}
