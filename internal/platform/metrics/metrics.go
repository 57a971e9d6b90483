// Package metrics exposes the daemon's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the daemon's metric set, backed by its own registry so tests
// can create isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	TicksTotal    prometheus.Counter
	FramesInTotal *prometheus.CounterVec
	ActiveStreams prometheus.Gauge
	DrawDuration  prometheus.Histogram
}

// New creates a Metrics with all collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "compositor",
			Name:      "ticks_total",
			Help:      "Composed output frames.",
		}),
		FramesInTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "compositor",
			Name:      "frames_uploaded_total",
			Help:      "Uploaded input frames per stream.",
		}, []string{"stream"}),
		ActiveStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "compositor",
			Name:      "active_streams",
			Help:      "Currently registered input streams.",
		}),
		DrawDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "compositor",
			Name:      "draw_duration_seconds",
			Help:      "Wall time of one compose-and-readback tick.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.TicksTotal,
		m.FramesInTotal,
		m.ActiveStreams,
		m.DrawDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
