// Package metrics exports multibuffer and workspace activity as Prometheus
// metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "multibuffer"

// Collector records metrics into its own registry.
// It implements multibuffer.MetricsCollector and workspace.MetricsCollector.
type Collector struct {
	registry *prometheus.Registry

	insertLatency prometheus.Histogram
	ranges        *prometheus.CounterVec
	excerpts      prometheus.Gauge
	syncLatency   prometheus.Histogram
	syncChanges   *prometheus.CounterVec
	loads         *prometheus.CounterVec
}

// New creates a Collector. When withRuntime is set, Go runtime and process
// collectors are registered as well.
func New(withRuntime bool) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		insertLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "insert_duration_seconds",
			Help:      "Latency of excerpt insertion",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
		}),
		ranges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ranges_total",
			Help:      "Excerpt ranges passed to insert, by outcome",
		}, []string{"result"}),
		excerpts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "excerpts",
			Help:      "Number of excerpts after the last insert or sync",
		}),
		syncLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Latency of synchronizations that found changes",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
		}),
		syncChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_changes_total",
			Help:      "Document changes applied during synchronization",
		}, []string{"kind"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_loads_total",
			Help:      "Documents read from disk, by operation and status",
		}, []string{"op", "status"}),
	}

	c.registry.MustRegister(
		c.insertLatency,
		c.ranges,
		c.excerpts,
		c.syncLatency,
		c.syncChanges,
		c.loads,
	)
	if withRuntime {
		c.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return c
}

// Registry returns the registry the collector records into.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// RecordInsert records one excerpt insertion.
func (c *Collector) RecordInsert(requested, dropped, excerpts int, d time.Duration) {
	c.insertLatency.Observe(d.Seconds())
	c.ranges.WithLabelValues("accepted").Add(float64(requested - dropped))
	c.ranges.WithLabelValues("dropped").Add(float64(dropped))
	c.excerpts.Set(float64(excerpts))
}

// RecordSync records one synchronization.
func (c *Collector) RecordSync(renames, edits, excerpts int, d time.Duration) {
	c.syncLatency.Observe(d.Seconds())
	c.syncChanges.WithLabelValues("rename").Add(float64(renames))
	c.syncChanges.WithLabelValues("edit").Add(float64(edits))
	c.excerpts.Set(float64(excerpts))
}

// RecordLoad records a document read for op ("open" or "reload").
func (c *Collector) RecordLoad(op string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.loads.WithLabelValues(op, status).Inc()
}
