// Package metrics 提供进程级 Prometheus 注册表与 Kratos 请求指标。
//
// 业务指标（ingest、sweeper）通过 Registerer 注册，统一带 service 标签；
// HTTP 请求指标由 OpenTelemetry 产生，经 Prometheus exporter 汇入同一个注册表。
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	kmetrics "github.com/go-kratos/kratos/v2/middleware/metrics"
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	promexp "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/elevatr/video-processing-service/internal/infrastructure/configloader"
)

// ProviderSet 暴露 Telemetry 及其注册表（Registerer/Gatherer）。
var ProviderSet = wire.NewSet(
	NewTelemetry,
	ProvideRegisterer,
	ProvideGatherer,
)

const shutdownTimeout = 5 * time.Second

// Telemetry 持有 /metrics 暴露的注册表与 HTTP 中间件使用的 otel 指标。
type Telemetry struct {
	Registry         *prometheus.Registry
	Registerer       prometheus.Registerer
	MeterProvider    *sdkmetric.MeterProvider
	RequestCounter   metric.Int64Counter
	SecondsHistogram metric.Float64Histogram
}

// NewTelemetry 构建注册表、build_info 指标与 otel MeterProvider，并设置为全局 MeterProvider。
func NewTelemetry(meta configloader.ServiceMetadata, logger log.Logger) (*Telemetry, func(), error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
		buildInfo(meta),
	)

	mp, err := newMeterProvider(registry)
	if err != nil {
		return nil, nil, err
	}
	otel.SetMeterProvider(mp)

	t := &Telemetry{
		Registry:      registry,
		Registerer:    prometheus.WrapRegistererWith(prometheus.Labels{"service": serviceName(meta)}, registry),
		MeterProvider: mp,
	}
	meter := mp.Meter(serviceName(meta))
	if t.RequestCounter, err = kmetrics.DefaultRequestsCounter(meter, kmetrics.DefaultServerRequestsCounterName); err != nil {
		return nil, nil, errors.Join(err, shutdown(mp))
	}
	if t.SecondsHistogram, err = kmetrics.DefaultSecondsHistogram(meter, kmetrics.DefaultServerSecondsHistogramName); err != nil {
		return nil, nil, errors.Join(err, shutdown(mp))
	}

	helper := log.NewHelper(logger)
	cleanup := func() {
		if err := shutdown(mp); err != nil {
			helper.Warnf("shutdown meter provider: %v", err)
		}
	}
	return t, cleanup, nil
}

// ProvideRegisterer 供业务指标注册使用。
func ProvideRegisterer(t *Telemetry) prometheus.Registerer {
	return t.Registerer
}

// ProvideGatherer 供 /metrics 暴露使用。
func ProvideGatherer(t *Telemetry) prometheus.Gatherer {
	return t.Registry
}

func newMeterProvider(registry prometheus.Registerer) (*sdkmetric.MeterProvider, error) {
	exporter, err := promexp.New(
		promexp.WithRegisterer(registry),
		promexp.WithoutUnits(),
	)
	if err != nil {
		return nil, err
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithView(kmetrics.DefaultSecondsHistogramView(kmetrics.DefaultServerSecondsHistogramName)),
	), nil
}

func buildInfo(meta configloader.ServiceMetadata) prometheus.Collector {
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "elevatr_build_info",
		Help: "Build metadata of the video processing service; value is always 1.",
		ConstLabels: prometheus.Labels{
			"service": serviceName(meta),
			"version": meta.Version,
			"env":     meta.Environment,
		},
	})
	g.Set(1)
	return g
}

func serviceName(meta configloader.ServiceMetadata) string {
	if meta.Name == "" {
		return "video-processing-service"
	}
	return meta.Name
}

func shutdown(mp *sdkmetric.MeterProvider) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return mp.Shutdown(ctx)
}
