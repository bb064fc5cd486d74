// Package observability exports World metrics to Prometheus.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/scenecore"
)

// Collector implements scenecore.MetricsCollector on top of Prometheus
// metric vectors.
type Collector struct {
	opLatency    *prometheus.HistogramVec
	updated      prometheus.Counter
	captureBytes prometheus.Counter
	allocs       *prometheus.CounterVec
	allocBytes   *prometheus.CounterVec
	frees        *prometheus.CounterVec
}

var _ scenecore.MetricsCollector = (*Collector)(nil)

// Option configures a Collector.
type Option func(*config)

type config struct {
	namespace string
	registry  prometheus.Registerer
	buckets   []float64
}

// WithNamespace sets the metric name prefix. Default is "scenecore".
func WithNamespace(ns string) Option {
	return func(c *config) { c.namespace = ns }
}

// WithRegisterer registers the metrics with r instead of the default
// registry.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(c *config) { c.registry = r }
}

// WithBuckets overrides the latency histogram buckets.
func WithBuckets(b []float64) Option {
	return func(c *config) { c.buckets = b }
}

// NewCollector creates and registers the metrics.
// It panics if a metric is already registered, like prometheus.MustRegister.
func NewCollector(opts ...Option) *Collector {
	cfg := config{
		namespace: "scenecore",
		registry:  prometheus.DefaultRegisterer,
		// Updates and allocations are sub-millisecond; captures can take seconds.
		buckets: prometheus.ExponentialBuckets(10e-6, 4, 10),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Collector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of world operations",
			Buckets:   cfg.buckets,
		}, []string{"op", "status"}),
		updated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Name:      "updated_entities_total",
			Help:      "Entities recalculated by Update",
		}),
		captureBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Name:      "capture_bytes_total",
			Help:      "Bytes written by successful captures",
		}),
		allocs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Name:      "allocations_total",
			Help:      "Allocations by tier",
		}, []string{"tier", "status"}),
		allocBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Name:      "allocated_bytes_total",
			Help:      "Bytes handed out by tier",
		}, []string{"tier"}),
		frees: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.namespace,
			Name:      "frees_total",
			Help:      "Frees by tier",
		}, []string{"tier", "status"}),
	}

	cfg.registry.MustRegister(c.opLatency, c.updated, c.captureBytes, c.allocs, c.allocBytes, c.frees)
	return c
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordSpawn implements scenecore.MetricsCollector.
func (c *Collector) RecordSpawn(d time.Duration, err error) {
	c.opLatency.WithLabelValues("spawn", status(err)).Observe(d.Seconds())
}

// RecordDespawn implements scenecore.MetricsCollector.
func (c *Collector) RecordDespawn(d time.Duration, err error) {
	c.opLatency.WithLabelValues("despawn", status(err)).Observe(d.Seconds())
}

// RecordUpdate implements scenecore.MetricsCollector.
func (c *Collector) RecordUpdate(entities int, d time.Duration, err error) {
	c.opLatency.WithLabelValues("update", status(err)).Observe(d.Seconds())
	if err == nil {
		c.updated.Add(float64(entities))
	}
}

// RecordCapture implements scenecore.MetricsCollector.
func (c *Collector) RecordCapture(bytes int, d time.Duration, err error) {
	c.opLatency.WithLabelValues("capture", status(err)).Observe(d.Seconds())
	if err == nil {
		c.captureBytes.Add(float64(bytes))
	}
}

// RecordAlloc implements scenecore.MetricsCollector.
func (c *Collector) RecordAlloc(tier string, size int, err error) {
	c.allocs.WithLabelValues(tier, status(err)).Inc()
	if err == nil {
		c.allocBytes.WithLabelValues(tier).Add(float64(size))
	}
}

// RecordFree implements scenecore.MetricsCollector.
func (c *Collector) RecordFree(tier string, _ int, err error) {
	c.frees.WithLabelValues(tier, status(err)).Inc()
}
