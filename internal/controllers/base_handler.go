// Package controllers 实现 HTTP 入口：上传通知推送与视频状态查询。
package controllers

import (
	"context"
	"time"
)

// HandlerTimeouts 聚合 Handler 的超时策略。
//
// 推送入口不设超时：Worker 会脱离请求上下文完成整条流水线。
type HandlerTimeouts struct {
	Query time.Duration
}

const fallbackQueryTimeout = 3 * time.Second

// BaseHandler 提供公共的超时能力，供具体 Handler 内嵌复用。
type BaseHandler struct {
	timeouts HandlerTimeouts
}

// NewBaseHandler 构造基础 Handler，并为缺省值填充回退策略。
func NewBaseHandler(timeouts HandlerTimeouts) *BaseHandler {
	if timeouts.Query <= 0 {
		timeouts.Query = fallbackQueryTimeout
	}
	return &BaseHandler{timeouts: timeouts}
}

// WithQueryTimeout 为只读查询包装超时上下文。
func (h *BaseHandler) WithQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h == nil {
		return context.WithTimeout(ctx, fallbackQueryTimeout)
	}
	return context.WithTimeout(ctx, h.timeouts.Query)
}
