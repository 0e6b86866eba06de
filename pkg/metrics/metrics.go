// Package metrics records Prometheus metrics and OpenTelemetry spans for driver operations.
//
// # Basic Usage
//
//	collector := metrics.NewCollector(prometheus.NewRegistry())
//	start := time.Now()
//	entities, err := docs.Select(ctx, query)
//	collector.Observe("mongodb", "select", start, err)
//
// Spans are opened with a Tracer:
//
//	ctx, end := metrics.NewTracer(nil).Start(ctx, "mongodb", "select")
//	defer func() { end(err) }()
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "nosql"

// Collector holds the operation metrics of the drivers.
type Collector struct {
	operations        *prometheus.CounterVec   // Operations by outcome
	duration          *prometheus.HistogramVec // Operation latency distribution
	entities          *prometheus.CounterVec   // Entities read or written
	activeConnections *prometheus.GaugeVec     // Open connections per database
}

// NewCollector registers the driver metrics on reg. A nil reg uses the default registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of driver operations",
			},
			[]string{"database", "operation", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Driver operation latency in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 16),
			},
			[]string{"database", "operation"},
		),
		entities: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "entities_total",
				Help:      "Total number of entities or values read and written",
			},
			[]string{"database", "operation"},
		),
		activeConnections: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_connections",
				Help:      "Number of open driver connections",
			},
			[]string{"database"},
		),
	}
}

// Observe records one operation that started at start and ended with err.
func (c *Collector) Observe(database, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.operations.WithLabelValues(database, operation, status).Inc()
	c.duration.WithLabelValues(database, operation).Observe(time.Since(start).Seconds())
}

// AddEntities counts entities moved by an operation.
func (c *Collector) AddEntities(database, operation string, n int) {
	if n <= 0 {
		return
	}
	c.entities.WithLabelValues(database, operation).Add(float64(n))
}

// ConnectionOpened increments the open connection gauge.
func (c *Collector) ConnectionOpened(database string) {
	c.activeConnections.WithLabelValues(database).Inc()
}

// ConnectionClosed decrements the open connection gauge.
func (c *Collector) ConnectionClosed(database string) {
	c.activeConnections.WithLabelValues(database).Dec()
}
