package patterns

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus collectors for the pattern engine.
type Metrics struct {
	AnalysesTotal     *prometheus.CounterVec
	RuleFiringsTotal  *prometheus.CounterVec
	PatternsEmitted   *prometheus.CounterVec
	PatternsDiscarded *prometheus.CounterVec
	AnalysisDuration  prometheus.Histogram
}

// NewMetrics returns the process-wide engine metrics, registering them with
// the default registry on first use.
//
//   - genogram_patterns_analyses_total{result}
//   - genogram_patterns_rule_firings_total{rule}
//   - genogram_patterns_emitted_total{rule}
//   - genogram_patterns_discarded_total{rule}
//   - genogram_patterns_analysis_duration_seconds
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			AnalysesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "genogram",
					Subsystem: "patterns",
					Name:      "analyses_total",
					Help:      "Total pattern detection passes by result.",
				},
				[]string{"result"}, // "ok", "error", "canceled"
			),
			RuleFiringsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "genogram",
					Subsystem: "patterns",
					Name:      "rule_firings_total",
					Help:      "Total rule matches before score filtering.",
				},
				[]string{"rule"},
			),
			PatternsEmitted: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "genogram",
					Subsystem: "patterns",
					Name:      "emitted_total",
					Help:      "Total patterns returned to callers.",
				},
				[]string{"rule"},
			),
			PatternsDiscarded: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "genogram",
					Subsystem: "patterns",
					Name:      "discarded_total",
					Help:      "Total matched patterns dropped below the minimum score.",
				},
				[]string{"rule"},
			),
			AnalysisDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: "genogram",
					Subsystem: "patterns",
					Name:      "analysis_duration_seconds",
					Help:      "Duration of pattern detection passes.",
					Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
				},
			),
		}
	})
	return globalMetrics
}
