package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	RequestCount      *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	InferenceDuration *prometheus.HistogramVec
	Predictions       *prometheus.CounterVec
	CacheHits         prometheus.Counter
}

// New registers the service collectors on a fresh registry, so tests can
// build as many as they like.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			}, []string{"path", "method", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			}, []string{"path"},
		),
		InferenceDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "inference_duration_seconds",
				Help:    "Time spent in model inference",
				Buckets: prometheus.DefBuckets,
			}, []string{"model"},
		),
		Predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predictions_total",
				Help: "Predictions by model and label",
			}, []string{"model", "label"},
		),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prediction_cache_hits_total",
			Help: "Predictions served from the result cache",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestCount,
		m.RequestDuration,
		m.InferenceDuration,
		m.Predictions,
		m.CacheHits,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
