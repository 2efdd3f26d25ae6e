package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name:      "ticks_total",
		Namespace: HydroponicsNamespace,
		Help:      "The total number of simulation ticks applied to the zone store.",
	})

	TickDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:      "tick_duration_seconds",
		Namespace: HydroponicsNamespace,
		Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
		Help:      "Time spent advancing, classifying and swapping all zones.",
	})

	ZonePH = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:      "zone_ph",
			Namespace: HydroponicsNamespace,
			Help:      "Latest pH reading per zone.",
		},
		[]string{"zone"},
	)

	ZoneTemperatureCelsius = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:      "zone_temperature_celsius",
			Namespace: HydroponicsNamespace,
			Help:      "Latest temperature reading per zone.",
		},
		[]string{"zone"},
	)

	ZonesByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:      "zones_by_status",
			Namespace: HydroponicsNamespace,
			Help:      "Number of zones in each health status after the last tick.",
		},
		[]string{"status"},
	)

	SinkErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "sink_errors_total",
			Namespace: HydroponicsNamespace,
			Help:      "Snapshot publish failures per sink.",
		},
		[]string{"sink"},
	)
)
