// Package metrics exposes harvest counters for Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "semharvest"

// Outcome labels for processed paths.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// Metrics holds the harvest collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	assets      *prometheus.CounterVec
	oversize    prometheus.Counter
	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram
	collections prometheus.Counter
}

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		assets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assets_processed_total",
			Help:      "Semantic asset paths processed, by type and outcome.",
		}, []string{"type", "outcome"}),
		oversize: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oversize_files_total",
			Help:      "Files larger than the configured maximum size.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Harvest runs, by outcome.",
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of repository harvest runs.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		collections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vocabulary_collections_dropped_total",
			Help:      "Flattened vocabulary collections dropped before re-indexing.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.assets, m.oversize, m.runs, m.runDuration, m.collections} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// AssetProcessed counts one processed path of the given asset type.
func (m *Metrics) AssetProcessed(assetType string, ok bool) {
	if m == nil {
		return
	}
	outcome := OutcomeSucceeded
	if !ok {
		outcome = OutcomeFailed
	}
	m.assets.WithLabelValues(assetType, outcome).Inc()
}

// FileTooBig counts n oversize files.
func (m *Metrics) FileTooBig(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.oversize.Add(float64(n))
}

// CollectionDropped counts one dropped vocabulary collection.
func (m *Metrics) CollectionDropped() {
	if m == nil {
		return
	}
	m.collections.Inc()
}

// RunFinished records the outcome and duration of a run.
func (m *Metrics) RunFinished(d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSucceeded
	if err != nil {
		outcome = OutcomeFailed
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.runDuration.Observe(d.Seconds())
}
