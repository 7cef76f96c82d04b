// Package metrics exposes Prometheus metrics for the sync pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "embedsync"

// Field value outcomes.
const (
	FieldEmbedded = "embedded"
	FieldSkipped  = "skipped"
	FieldFailed   = "failed"
)

// Item outcomes.
const (
	ItemSynced  = "synced"
	ItemSkipped = "skipped"
	ItemFailed  = "failed"
	ItemDeleted = "deleted"
	ItemRetried = "retried"
	ItemDropped = "dropped"
)

// Metrics holds the pipeline collectors on a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry     *prometheus.Registry
	fieldValues  *prometheus.CounterVec
	items        *prometheus.CounterVec
	tokens       prometheus.Counter
	itemDuration *prometheus.HistogramVec
	queueDepth   prometheus.Gauge
}

// New creates and registers the pipeline metrics together with Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fieldValues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "field_values_total",
			Help:      "Field values processed, by status (embedded, skipped, failed)",
		}, []string{"status"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Work items processed, by outcome",
		}, []string{"outcome"}),
		tokens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_tokens_total",
			Help:      "Tokens consumed by embedding requests",
		}),
		itemDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "item_duration_seconds",
			Help:      "Time to process one work item",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"operation"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Pending work items in the queue",
		}),
	}

	m.registry.MustRegister(
		m.fieldValues,
		m.items,
		m.tokens,
		m.itemDuration,
		m.queueDepth,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// FieldValue counts one processed field value.
func (m *Metrics) FieldValue(status string) {
	if m == nil {
		return
	}
	m.fieldValues.WithLabelValues(status).Inc()
}

// Item counts one finished work item.
func (m *Metrics) Item(outcome string) {
	if m == nil {
		return
	}
	m.items.WithLabelValues(outcome).Inc()
}

// Tokens adds embedding token usage.
func (m *Metrics) Tokens(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.tokens.Add(float64(n))
}

// ObserveItem records how long an operation took on one item.
func (m *Metrics) ObserveItem(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.itemDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// QueueDepth sets the pending queue size.
func (m *Metrics) QueueDepth(n int64) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}
