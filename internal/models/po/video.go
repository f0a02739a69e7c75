// Package po 定义面向持久化的数据对象（Persistent Objects），由 Repository 层使用。
// PO 对象映射数据库表结构，不直接暴露给上层业务逻辑。
package po

import "time"

// VideoStatus 表示视频记录的生命周期状态，只允许向前推进。
type VideoStatus string

// 视频状态常量定义
const (
	VideoStatusProcessing VideoStatus = "processing" // 已接收通知，流水线进行中
	VideoStatusProcessed  VideoStatus = "processed"  // 转码、发布、审核均已完成
	VideoStatusFailed     VideoStatus = "failed"     // 长时间停留在 processing，由巡检任务标记
)

// Category 表示提交者类别，决定使用哪一组 bucket。
type Category string

// 提交者类别常量定义
const (
	CategoryApplicant Category = "applicant"
	CategoryStartup   Category = "startup"
)

// Valid 判断类别是否受支持。
func (c Category) Valid() bool {
	switch c {
	case CategoryApplicant, CategoryStartup:
		return true
	default:
		return false
	}
}

// Moderation 表示内容审核结论。
type Moderation string

// 审核结论常量定义
const (
	ModerationClean    Moderation = "clean"
	ModerationRejected Moderation = "rejected"
)

// Video 表示 elevatr.videos 表中的一条视频状态记录，也是幂等记录。
//
// 下游读取方必须同时检查 Status 与 Moderation：只有 processed + clean 才可展示。
type Video struct {
	ID            string      `db:"id"`             // <uid>-<category>-<ts>，主键兼幂等键
	UID           string      `db:"uid"`            // 上传者 ID
	VideoType     Category    `db:"video_type"`     // applicant / startup
	Status        VideoStatus `db:"status"`         // 生命周期状态
	Filename      *string     `db:"filename"`       // processed-<raw object name>，processed 时写入
	Moderation    *Moderation `db:"moderation"`     // 审核完成后写入
	FailureReason *string     `db:"failure_reason"` // 巡检标记失败时写入
	CreatedAt     time.Time   `db:"created_at"`
	CheckedAt     *time.Time  `db:"checked_at"` // 审核结论产生时间
	UpdatedAt     time.Time   `db:"updated_at"`
}

// Displayable 仅当处理完成且审核通过时返回 true。
func (v *Video) Displayable() bool {
	if v == nil || v.Status != VideoStatusProcessed || v.Moderation == nil {
		return false
	}
	return *v.Moderation == ModerationClean
}
