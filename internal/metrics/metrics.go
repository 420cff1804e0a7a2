// Package metrics exposes Prometheus instrumentation for the task API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "taskmanager"

const (
	NameHTTPRequests        = "http_requests_total"
	NameHTTPRequestDuration = "http_request_duration_seconds"
	NameTaskEvents          = "task_events_total"
	NameTasks               = "tasks"
	NameCacheRequests       = "task_cache_requests_total"

	LabelMethod    = "method"
	LabelRoute     = "route"
	LabelCode      = "code"
	LabelEventType = "event_type"
	LabelStatus    = "status"
	LabelResult    = "result"
)

// Metrics owns a registry and the collectors registered on it.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	taskEvents          *prometheus.CounterVec
}

// New creates a registry with the Go runtime and process collectors plus
// the API's own metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      NameHTTPRequests,
				Help:      "HTTP requests by method, route and status code",
			},
			[]string{LabelMethod, LabelRoute, LabelCode},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      NameHTTPRequestDuration,
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{LabelMethod, LabelRoute},
		),
		taskEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      NameTaskEvents,
				Help:      "Task lifecycle events by type",
			},
			[]string{LabelEventType},
		),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
