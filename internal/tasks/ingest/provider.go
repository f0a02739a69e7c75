package ingest

import (
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"

	"github.com/elevatr/video-processing-service/internal/infrastructure/configloader"
	"github.com/elevatr/video-processing-service/internal/infrastructure/gcs"
	"github.com/elevatr/video-processing-service/internal/moderation"
	"github.com/elevatr/video-processing-service/internal/repositories"
	"github.com/elevatr/video-processing-service/internal/staging"
	"github.com/elevatr/video-processing-service/internal/transcoder"
)

// ProviderSet 装配 Worker、指标与拉取 Runner。
var ProviderSet = wire.NewSet(
	NewMetrics,
	ProvideWorker,
	ProvideRunner,
)

// ProvideWorker 用具体实现装配 Worker。
func ProvideWorker(
	repo *repositories.VideoRepository,
	videos *gcs.VideoStore,
	tc *transcoder.Transcoder,
	analyzer *moderation.Analyzer,
	store *staging.Store,
	storageCfg configloader.StorageConfig,
	ingestCfg configloader.IngestConfig,
	metrics *Metrics,
	logger log.Logger,
) (*Worker, error) {
	return NewWorker(WorkerParams{
		Store:             repo,
		Videos:            videos,
		Transcoder:        tc,
		Analyzer:          analyzer,
		Staging:           store,
		AllowedExtensions: ingestCfg.AllowedExtensions,
		RejectedPrefix:    storageCfg.RejectedPrefix,
		Metrics:           metrics,
		Logger:            logger,
	})
}
