package controllers

import (
	"github.com/google/wire"

	"github.com/elevatr/video-processing-service/internal/repositories"
	"github.com/elevatr/video-processing-service/internal/tasks/ingest"
)

// ProviderSet exposes controller/handler constructors for DI.
var ProviderSet = wire.NewSet(
	ProvideBaseHandler,
	NewIngestHandler,
	NewVideoHandler,
	wire.Bind(new(PushProcessor), new(*ingest.Worker)),
	wire.Bind(new(VideoReader), new(*repositories.VideoRepository)),
)

// ProvideBaseHandler 使用默认超时策略构造 BaseHandler。
func ProvideBaseHandler() *BaseHandler {
	return NewBaseHandler(HandlerTimeouts{})
}
