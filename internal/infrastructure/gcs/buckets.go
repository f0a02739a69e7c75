// Package gcs 提供与 Google Cloud Storage 交互的基础设施封装。
package gcs

import (
	"fmt"
	"strings"

	"github.com/elevatr/video-processing-service/internal/infrastructure/configloader"
	"github.com/elevatr/video-processing-service/internal/models/po"
)

// Stage 区分同一类别下的 raw 与 processed bucket。
type Stage int

// Bucket 阶段
const (
	StageRaw Stage = iota
	StageProcessed
)

func (s Stage) String() string {
	if s == StageProcessed {
		return "processed"
	}
	return "raw"
}

// BucketSet 是 (类别, 阶段) 到 bucket 名称的静态映射，进程启动后不再变化。
type BucketSet struct {
	RawApplicant       string
	RawStartup         string
	ProcessedApplicant string
	ProcessedStartup   string
}

// NewBucketSet 从配置构造 BucketSet。
func NewBucketSet(cfg configloader.StorageConfig) BucketSet {
	return BucketSet{
		RawApplicant:       cfg.RawApplicantBucket,
		RawStartup:         cfg.RawStartupBucket,
		ProcessedApplicant: cfg.ProcessedApplicantBucket,
		ProcessedStartup:   cfg.ProcessedStartupBucket,
	}
}

// Bucket 返回指定类别与阶段的 bucket。未知类别返回错误。
func (b BucketSet) Bucket(category po.Category, stage Stage) (string, error) {
	var bucket string
	switch category {
	case po.CategoryApplicant:
		bucket = b.RawApplicant
		if stage == StageProcessed {
			bucket = b.ProcessedApplicant
		}
	case po.CategoryStartup:
		bucket = b.RawStartup
		if stage == StageProcessed {
			bucket = b.ProcessedStartup
		}
	default:
		return "", fmt.Errorf("gcs: unknown video category %q", category)
	}
	if bucket == "" {
		return "", fmt.Errorf("gcs: no %s bucket configured for %s", stage, category)
	}
	return bucket, nil
}

// PublicURL 拼接对象的公开访问地址：https://<host>/<bucket>/<object>。
func PublicURL(host, bucket, objectName string) string {
	host = strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://"), "/")
	return fmt.Sprintf("https://%s/%s/%s", host, bucket, objectName)
}

// URI 返回 gs://<bucket>/<object> 形式的地址。
func URI(bucket, objectName string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, objectName)
}
