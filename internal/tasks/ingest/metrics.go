package ingest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 记录流水线结论与各步骤耗时。
type Metrics struct {
	results  *prometheus.CounterVec
	steps    *prometheus.HistogramVec
	inflight prometheus.Gauge
}

// NewMetrics 创建并注册流水线指标。
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "elevatr",
			Subsystem: "ingest",
			Name:      "results_total",
			Help:      "Ingestion runs by terminal outcome.",
		}, []string{"outcome"}),
		steps: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "elevatr",
			Subsystem: "ingest",
			Name:      "step_duration_seconds",
			Help:      "Duration of each ingestion pipeline step.",
			Buckets:   []float64{0.05, 0.25, 1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"step"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "elevatr",
			Subsystem: "ingest",
			Name:      "inflight_runs",
			Help:      "Ingestion runs currently in progress.",
		}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.results, m.steps, m.inflight} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) observeResult(o Outcome) {
	if m == nil {
		return
	}
	m.results.WithLabelValues(o.String()).Inc()
}

func (m *Metrics) observeStep(state State, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.steps.WithLabelValues(string(state)).Observe(elapsed.Seconds())
}

func (m *Metrics) trackInflight() func() {
	if m == nil {
		return func() {}
	}
	m.inflight.Inc()
	return m.inflight.Dec
}
