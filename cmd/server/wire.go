//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"context"

	"github.com/go-kratos/kratos/v2"
	"github.com/google/wire"

	"github.com/elevatr/video-processing-service/internal/controllers"
	"github.com/elevatr/video-processing-service/internal/infrastructure/configloader"
	"github.com/elevatr/video-processing-service/internal/infrastructure/database"
	"github.com/elevatr/video-processing-service/internal/infrastructure/gcs"
	"github.com/elevatr/video-processing-service/internal/infrastructure/logger"
	"github.com/elevatr/video-processing-service/internal/infrastructure/metrics"
	"github.com/elevatr/video-processing-service/internal/moderation"
	"github.com/elevatr/video-processing-service/internal/repositories"
	"github.com/elevatr/video-processing-service/internal/server"
	"github.com/elevatr/video-processing-service/internal/staging"
	"github.com/elevatr/video-processing-service/internal/tasks/ingest"
	"github.com/elevatr/video-processing-service/internal/tasks/sweeper"
	"github.com/elevatr/video-processing-service/internal/transcoder"
)

//go:generate go run github.com/google/wire/cmd/wire

// wireApp init kratos application.
func wireApp(context.Context, configloader.Params) (*kratos.App, func(), error) {
	panic(wire.Build(
		configloader.ProviderSet,
		logger.ProviderSet,
		database.ProviderSet,
		repositories.ProviderSet,
		metrics.ProviderSet,
		gcs.ProviderSet,
		staging.ProviderSet,
		transcoder.ProviderSet,
		moderation.ProviderSet,
		ingest.ProviderSet,
		sweeper.Provide,
		controllers.ProviderSet,
		server.ProviderSet,
		newApp,
	))
}
