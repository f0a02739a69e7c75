// Package logger 构造带 trace/span 关联字段的 Kratos 日志器。
package logger

import (
	"context"
	"strings"

	gclog "github.com/bionicotaku/lingo-utils/gclog"

	"github.com/go-kratos/kratos/v2/log"
	"go.opentelemetry.io/otel/trace"
)

// Config captures runtime metadata used to annotate logs.
type Config struct {
	Service string
	Version string
	HostID  string
	Env     string
	// Level 为最低输出级别（debug/info/warn/error），为空时按环境推断。
	Level string
}

// NewLogger builds a Kratos-compatible logger with trace/span enrichment.
//
// 流水线每一步都会带上 ctx 打日志，trace_id/span_id 让一次运行的日志可以按 span 聚合。
func NewLogger(cfg Config) (log.Logger, error) {
	baseLogger, err := gclog.NewLogger(
		gclog.WithService(cfg.Service),
		gclog.WithVersion(cfg.Version),
		gclog.WithEnvironment(cfg.Env),
		gclog.WithStaticLabels(map[string]string{"service.id": cfg.HostID}),
		gclog.EnableSourceLocation(),
	)
	if err != nil {
		return nil, err
	}
	enriched := log.With(
		baseLogger,
		"trace_id", traceIDValuer(),
		"span_id", spanIDValuer(),
	)
	return log.NewFilter(enriched, log.FilterLevel(ResolveLevel(cfg.Level, cfg.Env))), nil
}

// ResolveLevel 解析日志级别；未配置或无法识别时，development 使用 debug，其余环境使用 info。
func ResolveLevel(level, env string) log.Level {
	// ParseLevel 对未知取值回落为 info，需区分显式的 info
	if parsed := log.ParseLevel(level); parsed != log.LevelInfo || strings.EqualFold(level, "info") {
		return parsed
	}
	if env == "development" {
		return log.LevelDebug
	}
	return log.LevelInfo
}

func traceIDValuer() log.Valuer {
	return func(ctx context.Context) interface{} {
		sc := trace.SpanContextFromContext(ctx)
		if sc.HasTraceID() {
			return sc.TraceID().String()
		}
		return ""
	}
}

func spanIDValuer() log.Valuer {
	return func(ctx context.Context) interface{} {
		sc := trace.SpanContextFromContext(ctx)
		if sc.HasSpanID() {
			return sc.SpanID().String()
		}
		return ""
	}
}
