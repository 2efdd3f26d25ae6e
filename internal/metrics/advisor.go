package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "refresh_total",
			Namespace: HydroponicsNamespace,
			Help:      "Recommendation refresh runs by result (ok, partial, failed).",
		},
		[]string{"result"},
	)

	RecommendationsPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name:      "recommendations_pending",
		Namespace: HydroponicsNamespace,
		Help:      "Recommendations waiting for an operator decision.",
	})

	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "decisions_total",
			Namespace: HydroponicsNamespace,
			Help:      "Operator decisions by outcome.",
		},
		[]string{"outcome"},
	)

	AnalysisCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "analysis_calls_total",
			Namespace: HydroponicsNamespace,
			Help:      "Calls to the generative analysis source by kind and result.",
		},
		[]string{"kind", "result"},
	)

	AnalysisLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:      "analysis_latency_seconds",
			Namespace: HydroponicsNamespace,
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30},
			Help:      "The latency of analysis calls in seconds.",
		},
		[]string{"kind"},
	)
)
