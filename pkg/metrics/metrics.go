// Package metrics records save and load outcomes on a private prometheus
// registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels.
const (
	ResultSuccess  = "success"
	ResultError    = "error"
	ResultRejected = "rejected"
)

// Recorder owns the keepsake collectors. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	operations    *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	snapshotBytes prometheus.Histogram
	missing       prometheus.Counter
	relationships *prometheus.CounterVec
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,

		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "keepsake_operations_total",
			Help: "Project operations by kind and result",
		}, []string{"operation", "result"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "keepsake_operation_duration_seconds",
			Help:    "Project operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		}, []string{"operation"}),

		snapshotBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "keepsake_snapshot_bytes",
			Help:    "Size of saved durable records",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		}),

		missing: factory.NewCounter(prometheus.CounterOpts{
			Name: "keepsake_restore_missing_elements_total",
			Help: "Relationship endpoints that never appeared during restore",
		}),

		relationships: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "keepsake_restore_relationships_total",
			Help: "Relationships handled during restore by outcome",
		}, []string{"outcome"}),
	}
}

// Registry returns the private registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Operation records one save, load or clear.
func (r *Recorder) Operation(op, result string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(op, result).Inc()
	r.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// SnapshotSize records the size of a saved record.
func (r *Recorder) SnapshotSize(bytes int) {
	if r == nil {
		return
	}
	r.snapshotBytes.Observe(float64(bytes))
}

// Restore records the relationship outcomes of one restore.
func (r *Recorder) Restore(applied, alreadyCorrect, skipped, missing int) {
	if r == nil {
		return
	}
	r.relationships.WithLabelValues("applied").Add(float64(applied))
	r.relationships.WithLabelValues("already_correct").Add(float64(alreadyCorrect))
	r.relationships.WithLabelValues("skipped").Add(float64(skipped))
	r.missing.Add(float64(missing))
}
