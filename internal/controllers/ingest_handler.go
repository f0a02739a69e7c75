package controllers

import (
	"context"
	"fmt"
	"io"

	"github.com/go-kratos/kratos/v2/errors"
	khttp "github.com/go-kratos/kratos/v2/transport/http"

	"github.com/elevatr/video-processing-service/internal/tasks/ingest"
)

// OperationPush 是推送入口在中间件链中的 operation 名称。
const OperationPush = "/elevatr.ingest.v1.Ingest/Push"

// 推送信封只包含对象元数据，1 MiB 足够
const maxPushBody = 1 << 20

// PushProcessor 由 ingest.Worker 实现。
type PushProcessor interface {
	HandlePush(ctx context.Context, body []byte) ingest.Result
}

// IngestHandler 接收 Pub/Sub push 请求，同步执行整条流水线后返回结论。
type IngestHandler struct {
	worker PushProcessor
}

// NewIngestHandler 构造 IngestHandler。
func NewIngestHandler(worker PushProcessor) *IngestHandler {
	return &IngestHandler{worker: worker}
}

// Push 处理 POST / 与 POST /process-video。
func (h *IngestHandler) Push(ctx khttp.Context) error {
	body, err := io.ReadAll(io.LimitReader(ctx.Request().Body, maxPushBody+1))
	if err != nil {
		return errors.BadRequest("INVALID_BODY", fmt.Sprintf("read body: %v", err))
	}
	if len(body) > maxPushBody {
		return errors.BadRequest("BODY_TOO_LARGE", "push body exceeds 1MiB")
	}

	khttp.SetOperation(ctx, OperationPush)
	handler := ctx.Middleware(func(c context.Context, req any) (any, error) {
		return h.worker.HandlePush(c, req.([]byte)), nil
	})
	out, err := handler(ctx, body)
	if err != nil {
		return err
	}
	res := out.(ingest.Result)
	return ctx.String(res.Outcome.HTTPStatus(), res.Message)
}
