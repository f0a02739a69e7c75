// Package moderation 调用 Video Intelligence 对已发布视频做露骨内容检测，并给出 clean/rejected 结论。
package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	videointelligence "cloud.google.com/go/videointelligence/apiv1"
	"cloud.google.com/go/videointelligence/apiv1/videointelligencepb"
	"github.com/go-kratos/kratos/v2/log"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/api/option"
	"google.golang.org/grpc"

	"github.com/elevatr/video-processing-service/internal/infrastructure/configloader"
	"github.com/elevatr/video-processing-service/internal/models/po"
)

// ErrAnalysis 表示分析请求失败、超时或长任务执行失败。
var ErrAnalysis = errors.New("moderation: analysis failed")

// RejectThreshold 是判定为 rejected 的最低色情可能性等级（含）。
const RejectThreshold = videointelligencepb.Likelihood_LIKELY

type annotateFunc func(ctx context.Context, req *videointelligencepb.AnnotateVideoRequest) (*videointelligencepb.AnnotateVideoResponse, error)

// Analyzer 提交 EXPLICIT_CONTENT_DETECTION 长任务并阻塞等待结果。
type Analyzer struct {
	annotate annotateFunc
	timeout  time.Duration
	log      *log.Helper
}

// NewClient 创建 Video Intelligence 客户端，gRPC 调用附带 otel 链路追踪。
func NewClient(ctx context.Context, cfg configloader.ModerationConfig, logger log.Logger) (*videointelligence.Client, func(), error) {
	opts := []option.ClientOption{
		option.WithGRPCDialOption(grpc.WithStatsHandler(otelgrpc.NewClientHandler())),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	client, err := videointelligence.NewClient(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("create video intelligence client: %w", err)
	}
	helper := log.NewHelper(logger)
	cleanup := func() {
		if err := client.Close(); err != nil {
			helper.Warnf("close video intelligence client: %v", err)
		}
	}
	return client, cleanup, nil
}

// NewAnalyzer 基于客户端构造 Analyzer。
func NewAnalyzer(client *videointelligence.Client, cfg configloader.ModerationConfig, logger log.Logger) *Analyzer {
	return newAnalyzer(func(ctx context.Context, req *videointelligencepb.AnnotateVideoRequest) (*videointelligencepb.AnnotateVideoResponse, error) {
		op, err := client.AnnotateVideo(ctx, req)
		if err != nil {
			return nil, err
		}
		return op.Wait(ctx)
	}, cfg.Timeout.Std(), logger)
}

func newAnalyzer(annotate annotateFunc, timeout time.Duration, logger log.Logger) *Analyzer {
	return &Analyzer{
		annotate: annotate,
		timeout:  timeout,
		log:      log.NewHelper(logger),
	}
}

// Analyze 对 gs:// 地址指向的视频做露骨内容检测。
func (a *Analyzer) Analyze(ctx context.Context, uri string) (po.Moderation, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := a.annotate(ctx, &videointelligencepb.AnnotateVideoRequest{
		InputUri: uri,
		Features: []videointelligencepb.Feature{videointelligencepb.Feature_EXPLICIT_CONTENT_DETECTION},
	})
	if err != nil {
		a.log.WithContext(ctx).Errorf("explicit content detection failed: uri=%s err=%v", uri, err)
		return "", fmt.Errorf("%w: %s: %v", ErrAnalysis, uri, err)
	}

	frames := collectFrames(resp)
	verdict := Verdict(frames)
	a.log.WithContext(ctx).Infof("explicit content detection finished: uri=%s frames=%d verdict=%s elapsed=%s",
		uri, len(frames), verdict, time.Since(start).Round(time.Millisecond))
	return verdict, nil
}

// Verdict 任一帧色情可能性 >= LIKELY 即判定 rejected；没有帧数据视为 clean。
func Verdict(frames []*videointelligencepb.ExplicitContentFrame) po.Moderation {
	for _, frame := range frames {
		if frame.GetPornographyLikelihood() >= RejectThreshold {
			return po.ModerationRejected
		}
	}
	return po.ModerationClean
}

func collectFrames(resp *videointelligencepb.AnnotateVideoResponse) []*videointelligencepb.ExplicitContentFrame {
	var frames []*videointelligencepb.ExplicitContentFrame
	for _, result := range resp.GetAnnotationResults() {
		frames = append(frames, result.GetExplicitAnnotation().GetFrames()...)
	}
	return frames
}
