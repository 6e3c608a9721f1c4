// Package observability provides Prometheus metrics for the VisionQC station.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all the metric collectors for the station.
type Metrics struct {
	registry *prometheus.Registry

	capturesTotal     *prometheus.CounterVec
	inferenceDuration prometheus.Histogram
	storeOpsTotal     *prometheus.CounterVec
	exportsTotal      *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		capturesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "visionqc_captures_total",
			Help: "Total number of capture-and-inspect cycles by outcome",
		}, []string{"status"}),
		inferenceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "visionqc_inference_duration_seconds",
			Help:    "Duration of model inference calls",
			Buckets: prometheus.DefBuckets,
		}),
		storeOpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "visionqc_store_operations_total",
			Help: "Total number of detection record store operations by outcome",
		}, []string{"operation", "status"}),
		exportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "visionqc_exports_total",
			Help: "Total number of record exports by outcome",
		}, []string{"status"}),
	}

	collectors := []prometheus.Collector{
		m.capturesTotal,
		m.inferenceDuration,
		m.storeOpsTotal,
		m.exportsTotal,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Handler returns an HTTP handler serving the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordCapture counts one capture cycle with the given outcome.
func (m *Metrics) RecordCapture(status string) {
	m.capturesTotal.WithLabelValues(status).Inc()
}

// ObserveInference records the duration of one inference call in seconds.
func (m *Metrics) ObserveInference(seconds float64) {
	m.inferenceDuration.Observe(seconds)
}

// RecordStoreOp counts one store operation with the given outcome.
func (m *Metrics) RecordStoreOp(operation, status string) {
	m.storeOpsTotal.WithLabelValues(operation, status).Inc()
}

// RecordExport counts one export with the given outcome.
func (m *Metrics) RecordExport(status string) {
	m.exportsTotal.WithLabelValues(status).Inc()
}
