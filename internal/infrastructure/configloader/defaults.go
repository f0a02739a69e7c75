package configloader

import "time"

const (
	// defaultConfPath is the fallback configuration directory when no overrides are provided.
	defaultConfPath = "configs"
	// defaultEnvironment is used when APP_ENV is missing.
	defaultEnvironment = "development"
	defaultServiceName = "video-processing-service"
	defaultVersion     = "dev"

	defaultServerAddr     = "0.0.0.0:3000"
	defaultServerTimeout  = 10 * time.Minute
	defaultPublicHost     = "storage.googleapis.com"
	defaultRejectedPrefix = "rejected"

	defaultRawApplicantBucket       = "elevatr-applicant-raw-videos"
	defaultRawStartupBucket         = "elevatr-startup-raw-videos"
	defaultProcessedApplicantBucket = "elevatr-applicant-processed-videos"
	defaultProcessedStartupBucket   = "elevatr-startup-processed-videos"

	defaultRawDir       = "./raw-videos"
	defaultProcessedDir = "./processed-videos"

	defaultTranscodeHeight = 1080

	defaultModerationTimeout = 15 * time.Minute

	defaultUploadTopic = "elevatr-raw-video-uploads"

	defaultSweepInterval  = 10 * time.Minute
	defaultSweepMaxAge    = 2 * time.Hour
	defaultSweepBatchSize = 100
)

var defaultAllowedExtensions = []string{"mp4", "mov", "avi"}

// fillDefaults 为缺省字段填充回退值，在环境变量覆盖之后、校验之前执行。
func fillDefaults(cfg *RuntimeConfig) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = defaultServerAddr
	}
	if cfg.Server.Timeout <= 0 {
		cfg.Server.Timeout = Duration(defaultServerTimeout)
	}

	st := &cfg.Storage
	st.PublicHost = firstNonEmpty(st.PublicHost, defaultPublicHost)
	st.RejectedPrefix = firstNonEmpty(st.RejectedPrefix, defaultRejectedPrefix)
	st.RawApplicantBucket = firstNonEmpty(st.RawApplicantBucket, defaultRawApplicantBucket)
	st.RawStartupBucket = firstNonEmpty(st.RawStartupBucket, defaultRawStartupBucket)
	st.ProcessedApplicantBucket = firstNonEmpty(st.ProcessedApplicantBucket, defaultProcessedApplicantBucket)
	st.ProcessedStartupBucket = firstNonEmpty(st.ProcessedStartupBucket, defaultProcessedStartupBucket)

	cfg.Staging.RawDir = firstNonEmpty(cfg.Staging.RawDir, defaultRawDir)
	cfg.Staging.ProcessedDir = firstNonEmpty(cfg.Staging.ProcessedDir, defaultProcessedDir)

	if cfg.Transcoder.Height <= 0 {
		cfg.Transcoder.Height = defaultTranscodeHeight
	}

	if cfg.Moderation.Timeout <= 0 {
		cfg.Moderation.Timeout = Duration(defaultModerationTimeout)
	}

	if cfg.Messaging.ProjectID == "" {
		cfg.Messaging.ProjectID = cfg.Storage.ProjectID
	}
	cfg.Messaging.TopicID = firstNonEmpty(cfg.Messaging.TopicID, defaultUploadTopic)

	if cfg.Sweeper.Interval <= 0 {
		cfg.Sweeper.Interval = Duration(defaultSweepInterval)
	}
	if cfg.Sweeper.MaxAge <= 0 {
		cfg.Sweeper.MaxAge = Duration(defaultSweepMaxAge)
	}
	if cfg.Sweeper.BatchSize <= 0 {
		cfg.Sweeper.BatchSize = defaultSweepBatchSize
	}

	if len(cfg.Ingest.AllowedExtensions) == 0 {
		cfg.Ingest.AllowedExtensions = append([]string(nil), defaultAllowedExtensions...)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
