// Package observability provides Prometheus metrics for detection runs.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"halo-cme-lab/internal/domain"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "halo_cme_lab"

// Metrics holds all Prometheus metrics for one run. All methods are safe on a
// nil receiver so callers without metrics can pass nil.
type Metrics struct {
	registry *prometheus.Registry

	// Window metrics
	WindowsProcessed prometheus.Counter
	WindowsSkipped   prometheus.Counter
	MissingColumns   *prometheus.CounterVec
	WindowDuration   prometheus.Histogram

	// Event metrics
	EventsDetected  *prometheus.CounterVec
	EventsPublished prometheus.Counter
	FalseNegatives  *prometheus.CounterVec

	// Evaluation metrics
	Precision prometheus.Gauge
	Recall    prometheus.Gauge
	F1        prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered on a fresh registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		WindowsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "windows_processed_total",
			Help:      "Total number of catalog windows scored",
		}),
		WindowsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "windows_skipped_total",
			Help:      "Total number of catalog windows with no samples in range",
		}),
		MissingColumns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "missing_columns_total",
			Help:      "Weighted parameters absent from the series, by parameter",
		}, []string{"parameter"}),
		WindowDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "window_duration_seconds",
			Help:      "Time spent processing one catalog window",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}),

		EventsDetected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "detected_total",
			Help:      "Detected events by strength and validation label",
		}, []string{"strength", "validation"}),
		EventsPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Events published to the message broker",
		}),
		FalseNegatives: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "false_negatives_total",
			Help:      "Catalog windows without a matching event, by reason",
		}, []string{"reason"}),

		Precision: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "precision",
			Help:      "Precision of the last run",
		}),
		Recall: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "recall",
			Help:      "Recall of the last run",
		}),
		F1: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "f1",
			Help:      "F1 score of the last run",
		}),

		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful detection run",
		}),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordWindow records one processed window.
func (m *Metrics) RecordWindow(summary domain.WindowSummary, elapsed time.Duration) {
	if m == nil {
		return
	}
	if summary.Skipped {
		m.WindowsSkipped.Inc()
	} else {
		m.WindowsProcessed.Inc()
	}
	for _, name := range summary.MissingNames {
		m.MissingColumns.WithLabelValues(name).Inc()
	}
	m.WindowDuration.Observe(elapsed.Seconds())
}

// RecordRun records the outcome of a finished run.
func (m *Metrics) RecordRun(run *domain.DetectionRun, finishedAt time.Time) {
	if m == nil || run == nil {
		return
	}
	for _, e := range run.Events {
		m.EventsDetected.WithLabelValues(e.Strength.String(), e.Validation.String()).Inc()
	}
	for _, fn := range run.FalseNegatives {
		m.FalseNegatives.WithLabelValues(fn.Reason.String()).Inc()
	}
	m.Precision.Set(run.Summary.Precision)
	m.Recall.Set(run.Summary.Recall)
	m.F1.Set(run.Summary.F1)
	m.LastSuccessfulRun.Set(float64(finishedAt.Unix()))
}

// RecordPublished increments the published events counter by n.
func (m *Metrics) RecordPublished(n int) {
	if m == nil {
		return
	}
	m.EventsPublished.Add(float64(n))
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(elapsed.Seconds())
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// WriteTextfile writes all metrics in the text exposition format to path,
// for pickup by the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
