// Package metrics defines Prometheus metrics for the QuoteCraft engine.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds all registered Prometheus collectors.
type Metrics struct {
	ActivityDuration         *prometheus.HistogramVec
	ActivityTotal            *prometheus.CounterVec
	GenerationDuration       prometheus.Histogram
	QuotesGeneratedTotal     *prometheus.CounterVec
	ClassificationFallbacks  prometheus.Counter
	CorrectionsMergedTotal   prometheus.Counter
	LearnNoopsTotal          prometheus.Counter
	AdjustmentsEvictedTotal  prometheus.Counter
}

// New creates uninitialised metric instances.
func New() *Metrics {
	return &Metrics{
		ActivityDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quotecraft_activity_duration_seconds",
				Help:    "Duration of each Temporal activity execution in seconds.",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
			},
			[]string{"activity_name", "result"},
		),
		ActivityTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quotecraft_activity_total",
				Help: "Total number of Temporal activity executions by name and result.",
			},
			[]string{"activity_name", "result"},
		),
		GenerationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "quotecraft_quote_generation_seconds",
			Help:    "End-to-end duration of quote generation in seconds.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
		}),
		QuotesGeneratedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quotecraft_quotes_generated_total",
				Help: "Total number of quote generation attempts by result.",
			},
			[]string{"result"},
		),
		ClassificationFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quotecraft_classification_fallbacks_total",
			Help: "Total number of quotes routed to the fallback category because classification was unavailable.",
		}),
		CorrectionsMergedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quotecraft_corrections_merged_total",
			Help: "Total number of corrections merged into the knowledge store.",
		}),
		LearnNoopsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quotecraft_learn_noops_total",
			Help: "Total number of learn runs that produced nothing to merge.",
		}),
		AdjustmentsEvictedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quotecraft_adjustments_evicted_total",
			Help: "Total number of learned adjustments evicted by the per-category cap.",
		}),
	}
}

// Register registers all metrics with the given registry and returns the Metrics instance.
func Register(reg prometheus.Registerer) (*Metrics, error) {
	m := New()
	if err := RegisterWith(reg, m); err != nil {
		return nil, err
	}
	return m, nil
}

// RegisterWith registers a pre-built Metrics instance with the given registry.
func RegisterWith(reg prometheus.Registerer, m *Metrics) error {
	collectors := []prometheus.Collector{
		m.ActivityDuration,
		m.ActivityTotal,
		m.GenerationDuration,
		m.QuotesGeneratedTotal,
		m.ClassificationFallbacks,
		m.CorrectionsMergedTotal,
		m.LearnNoopsTotal,
		m.AdjustmentsEvictedTotal,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
