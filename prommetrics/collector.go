package prommetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/knn"
)

// Collector implements knn.MetricsCollector with Prometheus metrics.
type Collector struct {
	opLatency *prometheus.HistogramVec
	learns    *prometheus.CounterVec
	removed   prometheus.Counter
	evictions prometheus.Counter
	svdDims   prometheus.Gauge
}

var _ knn.MetricsCollector = (*Collector)(nil)

// Options configures a Collector.
type Options struct {
	// Namespace prefixes every metric name. Default: "knn".
	Namespace string

	// Buckets are the latency histogram buckets in seconds.
	// Default: prometheus.DefBuckets
	Buckets []float64
}

// New creates a Collector and registers its metrics with reg. A nil reg
// registers with prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer, optFns ...func(o *Options)) *Collector {
	opts := Options{
		Namespace: "knn",
		Buckets:   prometheus.DefBuckets,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of classifier operations",
			Buckets:   opts.Buckets,
		}, []string{"op", "status"}),
		learns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "learn_total",
			Help:      "Learn calls by outcome",
		}, []string{"outcome"}),
		removed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "removed_rows_total",
			Help:      "Prototype rows removed by bulk removals",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "evictions_total",
			Help:      "Prototype rows evicted by the capacity bound",
		}),
		svdDims: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: opts.Namespace,
			Name:      "svd_dimensions",
			Help:      "Dimensions kept by the last SVD projection",
		}),
	}

	reg.MustRegister(c.opLatency, c.learns, c.removed, c.evictions, c.svdDims)
	return c
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordLearn implements knn.MetricsCollector.
func (c *Collector) RecordLearn(d time.Duration, added bool, err error) {
	c.opLatency.WithLabelValues("learn", status(err)).Observe(d.Seconds())
	switch {
	case err != nil:
		c.learns.WithLabelValues("error").Inc()
	case added:
		c.learns.WithLabelValues("added").Inc()
	default:
		c.learns.WithLabelValues("rejected").Inc()
	}
}

// RecordInfer implements knn.MetricsCollector.
func (c *Collector) RecordInfer(d time.Duration, err error) {
	c.opLatency.WithLabelValues("infer", status(err)).Observe(d.Seconds())
}

// RecordRemove implements knn.MetricsCollector.
func (c *Collector) RecordRemove(removed int, d time.Duration) {
	c.opLatency.WithLabelValues("remove", "success").Observe(d.Seconds())
	c.removed.Add(float64(removed))
}

// RecordEviction implements knn.MetricsCollector.
func (c *Collector) RecordEviction() {
	c.evictions.Inc()
}

// RecordSVD implements knn.MetricsCollector.
func (c *Collector) RecordSVD(dims int, d time.Duration, err error) {
	c.opLatency.WithLabelValues("svd", status(err)).Observe(d.Seconds())
	if err == nil {
		c.svdDims.Set(float64(dims))
	}
}
