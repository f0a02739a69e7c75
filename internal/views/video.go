// Package views 负责将持久化对象转换为 HTTP 响应结构。
package views

import (
	"time"

	"github.com/elevatr/video-processing-service/internal/models/po"
)

// VideoStatus 是 GET /videos/{id} 的响应体。
type VideoStatus struct {
	ID            string     `json:"id"`
	UID           string     `json:"uid"`
	VideoType     string     `json:"videoType"`
	Status        string     `json:"status"`
	Filename      *string    `json:"filename,omitempty"`
	Moderation    *string    `json:"moderation,omitempty"`
	FailureReason *string    `json:"failureReason,omitempty"`
	Displayable   bool       `json:"displayable"`
	CreatedAt     time.Time  `json:"createdAt"`
	CheckedAt     *time.Time `json:"checkedAt,omitempty"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// NewVideoStatus 将 po.Video 转换为响应结构。
func NewVideoStatus(v *po.Video) *VideoStatus {
	if v == nil {
		return &VideoStatus{}
	}
	resp := &VideoStatus{
		ID:            v.ID,
		UID:           v.UID,
		VideoType:     string(v.VideoType),
		Status:        string(v.Status),
		Filename:      v.Filename,
		FailureReason: v.FailureReason,
		Displayable:   v.Displayable(),
		CreatedAt:     v.CreatedAt,
		CheckedAt:     v.CheckedAt,
		UpdatedAt:     v.UpdatedAt,
	}
	if v.Moderation != nil {
		m := string(*v.Moderation)
		resp.Moderation = &m
	}
	return resp
}
