package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProviderAPICalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etofusion_provider_api_calls_total",
			Help: "Total weather provider API calls",
		},
		[]string{"provider", "status"},
	)

	ProviderAPILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "etofusion_provider_api_latency_seconds",
			Help:    "Weather provider API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	EnsembleProviders = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "etofusion_ensemble_providers",
			Help:    "Number of providers contributing to each ensemble result",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
	)

	CalibrationUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etofusion_calibration_updates_total",
			Help: "Total online calibration updates applied",
		},
		[]string{"provider", "season"},
	)

	EnhancementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etofusion_enhancements_total",
			Help: "Enhanced ETo estimates produced, by final method",
		},
		[]string{"method"},
	)
)
