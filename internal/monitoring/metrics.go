// Package monitoring exposes prometheus metrics for evaluations and runs a
// background checker that alerts on degraded or slow evaluations.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the evaluation engine's collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	AdapterRuns        *prometheus.CounterVec
	AdapterDuration    *prometheus.HistogramVec
	Evaluations        *prometheus.CounterVec
	EvaluationDuration prometheus.Histogram
	BidsAnalyzed       *prometheus.CounterVec
	RecommendationRuns *prometheus.CounterVec
	DegradedRate       prometheus.Gauge
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AdapterRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bideval_adapter_runs_total",
				Help: "Evidence adapter runs by adapter and outcome",
			},
			[]string{"adapter", "outcome"},
		),
		AdapterDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bideval_adapter_duration_seconds",
				Help:    "Duration of one evidence adapter run",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"adapter"},
		),
		Evaluations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bideval_evaluations_total",
				Help: "Evaluation requests by final status",
			},
			[]string{"status"},
		),
		EvaluationDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bideval_evaluation_duration_seconds",
				Help:    "End-to-end evaluation duration",
				Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 90},
			},
		),
		BidsAnalyzed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bideval_bids_total",
				Help: "Bids processed by outcome (analyzed or failed)",
			},
			[]string{"outcome"},
		),
		RecommendationRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bideval_recommendations_total",
				Help: "Recommendations by source (generated, fallback, empty)",
			},
			[]string{"source"},
		),
		DegradedRate: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "bideval_degraded_rate",
				Help: "Share of degraded runs in the monitoring lookback window",
			},
		),
	}
}

// ObserveAdapter records one adapter run.
func (m *Metrics) ObserveAdapter(adapter, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.AdapterRuns.WithLabelValues(adapter, outcome).Inc()
	m.AdapterDuration.WithLabelValues(adapter).Observe(d.Seconds())
}

// ObserveEvaluation records one finished evaluation.
func (m *Metrics) ObserveEvaluation(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.Evaluations.WithLabelValues(status).Inc()
	m.EvaluationDuration.Observe(d.Seconds())
}

// ObserveBids records the analyzed and failed counts of one batch.
func (m *Metrics) ObserveBids(analyzed, failed int) {
	if m == nil {
		return
	}
	m.BidsAnalyzed.WithLabelValues("analyzed").Add(float64(analyzed))
	m.BidsAnalyzed.WithLabelValues("failed").Add(float64(failed))
}

// ObserveRecommendation records where a recommendation came from.
func (m *Metrics) ObserveRecommendation(source string) {
	if m == nil {
		return
	}
	m.RecommendationRuns.WithLabelValues(source).Inc()
}

// SetSnapshot publishes the gauges derived from a run snapshot.
func (m *Metrics) SetSnapshot(snap *MetricsSnapshot) {
	if m == nil || snap == nil {
		return
	}
	m.DegradedRate.Set(snap.DegradedRate)
}
