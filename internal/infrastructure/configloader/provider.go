package configloader

import (
	"github.com/elevatr/video-processing-service/internal/infrastructure/logger"

	"github.com/google/wire"
)

// ProviderSet exposes configuration-derived dependencies for Wire graphs.
var ProviderSet = wire.NewSet(
	ProvideBundle,
	ProvideServiceMetadata,
	ProvideLoggerConfig,
	ProvideServerConfig,
	ProvideDatabaseConfig,
	ProvideStorageConfig,
	ProvideStagingConfig,
	ProvideTranscoderConfig,
	ProvideModerationConfig,
	ProvideMessagingConfig,
	ProvideSweeperConfig,
	ProvideIngestConfig,
)

// ProvideBundle loads and validates configuration.
func ProvideBundle(params Params) (*Bundle, error) {
	return Build(params)
}

// ProvideServiceMetadata returns the resolved ServiceMetadata.
func ProvideServiceMetadata(b *Bundle) ServiceMetadata {
	if b == nil {
		return ServiceMetadata{}
	}
	return b.Service
}

// ProvideLoggerConfig converts service metadata into logger.Config.
func ProvideLoggerConfig(meta ServiceMetadata) logger.Config {
	return logger.Config{
		Service: meta.Name,
		Version: meta.Version,
		HostID:  meta.InstanceID,
		Env:     meta.Environment,
		Level:   meta.LogLevel,
	}
}

// ProvideServerConfig returns the server section.
func ProvideServerConfig(b *Bundle) ServerConfig { return b.Config.Server }

// ProvideDatabaseConfig returns the database section.
func ProvideDatabaseConfig(b *Bundle) DatabaseConfig { return b.Config.Database }

// ProvideStorageConfig returns the storage section.
func ProvideStorageConfig(b *Bundle) StorageConfig { return b.Config.Storage }

// ProvideStagingConfig returns the local staging section.
func ProvideStagingConfig(b *Bundle) StagingConfig { return b.Config.Staging }

// ProvideTranscoderConfig returns the transcoder section.
func ProvideTranscoderConfig(b *Bundle) TranscoderConfig { return b.Config.Transcoder }

// ProvideModerationConfig returns the moderation section.
func ProvideModerationConfig(b *Bundle) ModerationConfig { return b.Config.Moderation }

// ProvideMessagingConfig returns the messaging section.
func ProvideMessagingConfig(b *Bundle) MessagingConfig { return b.Config.Messaging }

// ProvideSweeperConfig returns the sweeper section.
func ProvideSweeperConfig(b *Bundle) SweeperConfig { return b.Config.Sweeper }

// ProvideIngestConfig returns the ingest section.
func ProvideIngestConfig(b *Bundle) IngestConfig { return b.Config.Ingest }
