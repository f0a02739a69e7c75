// Package configloader 负责加载、规范化并校验服务运行时配置。
package configloader

import (
	"encoding/json"
	"fmt"
	"time"
)

// RuntimeConfig 聚合服务运行所需的全部配置片段。
type RuntimeConfig struct {
	Server     ServerConfig     `json:"server" validate:"required"`
	Database   DatabaseConfig   `json:"database" validate:"required"`
	Storage    StorageConfig    `json:"storage" validate:"required"`
	Staging    StagingConfig    `json:"staging" validate:"required"`
	Transcoder TranscoderConfig `json:"transcoder" validate:"required"`
	Moderation ModerationConfig `json:"moderation"`
	Messaging  MessagingConfig  `json:"messaging"`
	Sweeper    SweeperConfig    `json:"sweeper"`
	Ingest     IngestConfig     `json:"ingest"`
}

// ServerConfig HTTP 推送入口配置。
type ServerConfig struct {
	Network string   `json:"network"`
	Address string   `json:"addr" validate:"required"`
	Timeout Duration `json:"timeout"`
}

// DatabaseConfig 视频状态库（PostgreSQL）连接池配置。
type DatabaseConfig struct {
	DSN                string   `json:"dsn" validate:"required"`
	MaxOpenConns       int32    `json:"max_open_conns" validate:"gte=0"`
	MinOpenConns       int32    `json:"min_open_conns" validate:"gte=0"`
	MaxConnLifetime    Duration `json:"max_conn_lifetime"`
	MaxConnIdleTime    Duration `json:"max_conn_idle_time"`
	HealthCheckPeriod  Duration `json:"health_check_period"`
	Schema             string   `json:"schema"`
	PreparedStatements bool     `json:"prepared_statements"`
}

// StorageConfig 描述 raw/processed × applicant/startup 四个 bucket 以及公开访问域名。
type StorageConfig struct {
	ProjectID                string `json:"project_id"`
	PublicHost               string `json:"public_host" validate:"required,hostname_rfc1123"`
	RawApplicantBucket       string `json:"raw_applicant_bucket" validate:"required"`
	RawStartupBucket         string `json:"raw_startup_bucket" validate:"required"`
	ProcessedApplicantBucket string `json:"processed_applicant_bucket" validate:"required"`
	ProcessedStartupBucket   string `json:"processed_startup_bucket" validate:"required"`
	RejectedPrefix           string `json:"rejected_prefix" validate:"required,excludesall=/"`
}

// StagingConfig 本地工作目录。
type StagingConfig struct {
	RawDir       string `json:"raw_dir" validate:"required"`
	ProcessedDir string `json:"processed_dir" validate:"required,nefield=RawDir"`
}

// TranscoderConfig ffmpeg 转码参数。
type TranscoderConfig struct {
	FFmpegPath string `json:"ffmpeg_path"`
	Height     int    `json:"height" validate:"gt=0"`
}

// ModerationConfig Video Intelligence 审核客户端配置。
type ModerationConfig struct {
	Endpoint string   `json:"endpoint"`
	Timeout  Duration `json:"timeout"`
}

// MessagingConfig Pub/Sub 拉取模式配置，SubscriptionID 为空时不启动 Runner。
type MessagingConfig struct {
	ProjectID        string `json:"project_id"`
	TopicID          string `json:"topic_id"`
	SubscriptionID   string `json:"subscription_id"`
	EmulatorEndpoint string `json:"emulator_endpoint"`
}

// SweeperConfig 滞留记录巡检配置。
type SweeperConfig struct {
	Enabled   bool     `json:"enabled"`
	Interval  Duration `json:"interval"`
	MaxAge    Duration `json:"max_age"`
	BatchSize int      `json:"batch_size" validate:"gte=0"`
}

// IngestConfig 流水线行为配置。
type IngestConfig struct {
	AllowedExtensions []string `json:"allowed_extensions" validate:"dive,required,alphanum"`
}

// Duration 支持 "10m" 形式或纳秒整数的配置时长。
type Duration time.Duration

// UnmarshalJSON 实现 json.Unmarshaler。
func (d *Duration) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*d = 0
	case float64:
		*d = Duration(time.Duration(v))
	case string:
		if v == "" {
			*d = 0
			return nil
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("invalid duration value %v", raw)
	}
	return nil
}

// MarshalJSON 实现 json.Marshaler。
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std 返回标准库 time.Duration。
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
