package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	unitsAppliedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamforge_orchestrator_units_applied_total",
			Help: "Number of install units applied, by outcome.",
		},
		[]string{"outcome"},
	)
	documentsAppliedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "streamforge_orchestrator_documents_applied_total",
			Help: "Total number of manifest documents submitted to the cluster.",
		},
	)
	readinessWaitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "streamforge_orchestrator_readiness_wait_duration_seconds",
			Help:    "Time spent waiting for a unit's readiness condition.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)
	pollTransportErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "streamforge_orchestrator_poll_transport_errors_total",
			Help: "Transient transport errors absorbed while polling readiness.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		unitsAppliedTotal,
		documentsAppliedTotal,
		readinessWaitDuration,
		pollTransportErrorsTotal,
	)
}
