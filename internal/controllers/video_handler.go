package controllers

import (
	"context"
	stderrors "errors"

	"github.com/go-kratos/kratos/v2/errors"
	khttp "github.com/go-kratos/kratos/v2/transport/http"

	"github.com/elevatr/video-processing-service/internal/models/po"
	"github.com/elevatr/video-processing-service/internal/repositories"
	"github.com/elevatr/video-processing-service/internal/views"
)

// OperationGetVideo 是状态查询的 operation 名称。
const OperationGetVideo = "/elevatr.ingest.v1.Ingest/GetVideo"

// VideoReader 由 repositories.VideoRepository 实现。
type VideoReader interface {
	Get(ctx context.Context, id string) (*po.Video, error)
}

// VideoHandler 提供只读的视频状态查询，便于运维观察滞留记录。
type VideoHandler struct {
	*BaseHandler
	videos VideoReader
}

// NewVideoHandler 构造 VideoHandler。
func NewVideoHandler(base *BaseHandler, videos VideoReader) *VideoHandler {
	return &VideoHandler{BaseHandler: base, videos: videos}
}

// GetVideo 处理 GET /videos/{id}。
func (h *VideoHandler) GetVideo(ctx khttp.Context) error {
	id := ctx.Vars().Get("id")
	if id == "" {
		return errors.BadRequest("MISSING_ID", "video id is required")
	}

	khttp.SetOperation(ctx, OperationGetVideo)
	handler := ctx.Middleware(func(c context.Context, req any) (any, error) {
		timeoutCtx, cancel := h.WithQueryTimeout(c)
		defer cancel()

		video, err := h.videos.Get(timeoutCtx, req.(string))
		if err != nil {
			if stderrors.Is(err, repositories.ErrVideoNotFound) {
				return nil, errors.NotFound("VIDEO_NOT_FOUND", "video not found")
			}
			return nil, errors.InternalServer("QUERY_VIDEO_FAILED", "failed to load video").WithCause(err)
		}
		return views.NewVideoStatus(video), nil
	})
	out, err := handler(ctx, id)
	if err != nil {
		return err
	}
	return ctx.JSON(200, out)
}
