// Package server 组装 HTTP 传输层：推送入口、状态查询、健康检查与指标。
package server

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/middleware/logging"
	kmetrics "github.com/go-kratos/kratos/v2/middleware/metrics"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/elevatr/video-processing-service/internal/controllers"
	"github.com/elevatr/video-processing-service/internal/infrastructure/configloader"
	"github.com/elevatr/video-processing-service/internal/infrastructure/metrics"
	"github.com/elevatr/video-processing-service/internal/repositories"
)

// ReadinessChecker 检查下游依赖是否可用。
type ReadinessChecker interface {
	Ping(ctx context.Context) error
}

// NewReadinessChecker 使用视频状态库作为 readiness 依赖。
func NewReadinessChecker(repo *repositories.VideoRepository) ReadinessChecker {
	return repo
}

// NewHTTPServer new an HTTP server.
func NewHTTPServer(
	c configloader.ServerConfig,
	ingestHandler *controllers.IngestHandler,
	videoHandler *controllers.VideoHandler,
	ready ReadinessChecker,
	telemetry *metrics.Telemetry,
	gatherer prometheus.Gatherer,
	logger log.Logger,
) *http.Server {
	mws := []middleware.Middleware{recovery.Recovery()}
	if telemetry != nil {
		mws = append(mws, kmetrics.Server(
			kmetrics.WithRequests(telemetry.RequestCounter),
			kmetrics.WithSeconds(telemetry.SecondsHistogram),
		))
	}
	mws = append(mws, logging.Server(logger))

	opts := []http.ServerOption{http.Middleware(mws...)}
	if c.Network != "" {
		opts = append(opts, http.Network(c.Network))
	}
	if c.Address != "" {
		opts = append(opts, http.Address(c.Address))
	}
	if d := c.Timeout.Std(); d > 0 {
		opts = append(opts, http.Timeout(d))
	}

	srv := http.NewServer(opts...)

	srv.Handle("/healthz", stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
		w.WriteHeader(stdhttp.StatusOK)
	}))

	srv.Handle("/readyz", stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		if ready == nil {
			w.WriteHeader(stdhttp.StatusOK)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := ready.Ping(ctx); err != nil {
			log.NewHelper(logger).WithContext(ctx).Warnf("readiness check failed: %v", err)
			w.WriteHeader(stdhttp.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(stdhttp.StatusOK)
	}))

	if gatherer != nil {
		srv.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	route := srv.Route("/")
	route.POST("/", ingestHandler.Push)
	route.POST("/process-video", ingestHandler.Push)
	route.GET("/videos/{id}", videoHandler.GetVideo)

	return srv
}
