package moderation

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"cloud.google.com/go/videointelligence/apiv1/videointelligencepb"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/elevatr/video-processing-service/internal/models/po"
)

func frames(levels ...videointelligencepb.Likelihood) []*videointelligencepb.ExplicitContentFrame {
	out := make([]*videointelligencepb.ExplicitContentFrame, 0, len(levels))
	for _, l := range levels {
		out = append(out, &videointelligencepb.ExplicitContentFrame{PornographyLikelihood: l})
	}
	return out
}

func TestVerdict(t *testing.T) {
	cases := []struct {
		name   string
		frames []*videointelligencepb.ExplicitContentFrame
		want   po.Moderation
	}{
		{"empty", nil, po.ModerationClean},
		{"all unlikely", frames(videointelligencepb.Likelihood_VERY_UNLIKELY, videointelligencepb.Likelihood_UNLIKELY), po.ModerationClean},
		{"possible stays clean", frames(videointelligencepb.Likelihood_POSSIBLE), po.ModerationClean},
		{"one likely", frames(videointelligencepb.Likelihood_UNLIKELY, videointelligencepb.Likelihood_LIKELY), po.ModerationRejected},
		{"very likely", frames(videointelligencepb.Likelihood_VERY_LIKELY), po.ModerationRejected},
		{"unspecified", frames(videointelligencepb.Likelihood_LIKELIHOOD_UNSPECIFIED), po.ModerationClean},
	}
	for _, tc := range cases {
		if got := Verdict(tc.frames); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestAnalyzeCollectsFramesAcrossResults(t *testing.T) {
	var gotReq *videointelligencepb.AnnotateVideoRequest
	analyzer := newAnalyzer(func(_ context.Context, req *videointelligencepb.AnnotateVideoRequest) (*videointelligencepb.AnnotateVideoResponse, error) {
		gotReq = req
		return &videointelligencepb.AnnotateVideoResponse{
			AnnotationResults: []*videointelligencepb.VideoAnnotationResults{
				{ExplicitAnnotation: &videointelligencepb.ExplicitContentAnnotation{Frames: frames(videointelligencepb.Likelihood_UNLIKELY)}},
				{ExplicitAnnotation: &videointelligencepb.ExplicitContentAnnotation{Frames: frames(videointelligencepb.Likelihood_VERY_LIKELY)}},
			},
		}, nil
	}, 0, log.NewStdLogger(io.Discard))

	verdict, err := analyzer.Analyze(context.Background(), "gs://bucket/processed-a-startup-1.mp4")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if verdict != po.ModerationRejected {
		t.Fatalf("expected rejected, got %s", verdict)
	}
	if gotReq.GetInputUri() != "gs://bucket/processed-a-startup-1.mp4" {
		t.Fatalf("unexpected uri %s", gotReq.GetInputUri())
	}
	if len(gotReq.GetFeatures()) != 1 || gotReq.GetFeatures()[0] != videointelligencepb.Feature_EXPLICIT_CONTENT_DETECTION {
		t.Fatalf("unexpected features %v", gotReq.GetFeatures())
	}
}

func TestAnalyzeEmptyResultIsClean(t *testing.T) {
	analyzer := newAnalyzer(func(context.Context, *videointelligencepb.AnnotateVideoRequest) (*videointelligencepb.AnnotateVideoResponse, error) {
		return &videointelligencepb.AnnotateVideoResponse{}, nil
	}, 0, log.NewStdLogger(io.Discard))

	verdict, err := analyzer.Analyze(context.Background(), "gs://b/o.mp4")
	if err != nil || verdict != po.ModerationClean {
		t.Fatalf("expected clean, got %s err=%v", verdict, err)
	}
}

func TestAnalyzeErrorAndTimeout(t *testing.T) {
	analyzer := newAnalyzer(func(ctx context.Context, _ *videointelligencepb.AnnotateVideoRequest) (*videointelligencepb.AnnotateVideoResponse, error) {
		if _, ok := ctx.Deadline(); !ok {
			return nil, errors.New("expected deadline")
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}, 10*time.Millisecond, log.NewStdLogger(io.Discard))

	_, err := analyzer.Analyze(context.Background(), "gs://b/o.mp4")
	if !errors.Is(err, ErrAnalysis) {
		t.Fatalf("expected ErrAnalysis, got %v", err)
	}
}
