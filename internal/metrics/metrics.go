// Package metrics is the ambient Prometheus registry (§5A). It registers
// collectors for request latency, redirect outcomes, event-bus publish
// success/drop, and analytics consumer batch size; only the publish and
// drop counters are incremented by other packages, while the latency,
// outcome and batch-size collectors are exposed but never recorded to. A
// single Registry is created once at startup and threaded into whichever
// components need to record against it.
package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles the registered collectors.
type Registry struct {
	registry *prometheus.Registry

	RequestDuration *prometheus.HistogramVec
	RedirectTotal   *prometheus.CounterVec
	EventPublished  prometheus.Counter
	EventDropped    prometheus.Counter
	ConsumerBatch   prometheus.Histogram
}

// New builds a Registry with every collector registered.
func New() *Registry {
	reg := prometheus.NewRegistry()

	m := &Registry{
		registry: reg,
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shortlink_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status class.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		RedirectTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shortlink_redirect_total",
			Help: "Redirect outcomes by result.",
		}, []string{"outcome"}),
		EventPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shortlink_hit_events_published_total",
			Help: "HitEvents successfully published to the event bus.",
		}),
		EventDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shortlink_hit_events_dropped_total",
			Help: "HitEvents dropped because publishing failed or the background dispatch pool was full.",
		}),
		ConsumerBatch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "shortlink_analytics_consumer_batch_size",
			Help:    "Size of analytics consumer batches applied to the store.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
		}),
	}

	reg.MustRegister(
		m.RequestDuration,
		m.RedirectTotal,
		m.EventPublished,
		m.EventDropped,
		m.ConsumerBatch,
	)
	return m
}

// Handler returns the Prometheus text-exposition handler for GET /metrics.
func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ServeJSON serves GET /metrics/json: a JSON mirror of the same counters,
// gathered straight from the registry rather than duplicating state.
func (m *Registry) ServeJSON(w http.ResponseWriter, r *http.Request) {
	families, err := m.registry.Gather()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make(map[string]any, len(families))
	for _, family := range families {
		samples := make([]map[string]any, 0, len(family.Metric))
		for _, metric := range family.Metric {
			labels := make(map[string]string, len(metric.Label))
			for _, label := range metric.Label {
				labels[label.GetName()] = label.GetValue()
			}
			sample := map[string]any{"labels": labels}
			switch {
			case metric.Counter != nil:
				sample["value"] = metric.Counter.GetValue()
			case metric.Histogram != nil:
				sample["sampleCount"] = metric.Histogram.GetSampleCount()
				sample["sampleSum"] = metric.Histogram.GetSampleSum()
			}
			samples = append(samples, sample)
		}
		out[family.GetName()] = samples
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}
