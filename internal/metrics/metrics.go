// Package metrics provides prometheus instrumentation for dispo.
//
// The CLI is short-lived, so metrics live in a private registry and are
// written to a node-exporter textfile on exit instead of being scraped.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the engines and the snapshot gateway.
type Metrics struct {
	registry *prometheus.Registry

	// Permission decisions by action, outcome and reason
	Decisions *prometheus.CounterVec

	// Executed write intents by effect type
	Effects *prometheus.CounterVec

	// Letters rejected by the tree builder
	StructuralViolations prometheus.Counter

	// Snapshot re-fetches after a missing snapshot
	SnapshotRetries prometheus.Counter

	// Snapshot + identity fetch latency
	FetchLatency prometheus.Histogram
}

// New creates a new Metrics instance with all metrics registered on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dispo_permission_decisions_total",
			Help: "Total permission decisions by action, outcome and reason",
		}, []string{"action", "outcome", "reason"}), // action: "dispose", "view", "read", "execute", "create_letter"

		Effects: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dispo_effects_executed_total",
			Help: "Total write intents executed by effect type",
		}, []string{"type"}),

		StructuralViolations: factory.NewCounter(prometheus.CounterOpts{
			Name: "dispo_structural_violations_total",
			Help: "Total letters whose disposition tree failed validation",
		}),

		SnapshotRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "dispo_snapshot_retries_total",
			Help: "Total snapshot re-fetches after the gateway returned no snapshot",
		}),

		FetchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dispo_snapshot_fetch_duration_seconds",
			Help:    "Duration of the concurrent snapshot and identity fetch",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// IncrementDecision records a permission decision.
func (m *Metrics) IncrementDecision(action, outcome, reason string) {
	if m != nil {
		m.Decisions.WithLabelValues(action, outcome, reason).Inc()
	}
}

// IncrementEffect records an executed effect.
func (m *Metrics) IncrementEffect(effectType string) {
	if m != nil {
		m.Effects.WithLabelValues(effectType).Inc()
	}
}

// IncrementStructuralViolation records a rejected tree.
func (m *Metrics) IncrementStructuralViolation() {
	if m != nil {
		m.StructuralViolations.Inc()
	}
}

// IncrementSnapshotRetry records a snapshot re-fetch.
func (m *Metrics) IncrementSnapshotRetry() {
	if m != nil {
		m.SnapshotRetries.Inc()
	}
}

// ObserveFetchLatency records the duration of a snapshot fetch.
func (m *Metrics) ObserveFetchLatency(d time.Duration) {
	if m != nil {
		m.FetchLatency.Observe(d.Seconds())
	}
}

// WriteTextfile writes all metrics in the text exposition format to path.
// An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
