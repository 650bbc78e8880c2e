package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for the order orchestration path. Registered on the default
// registry; every service exposes them through promhttp on /metrics.
var (
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shopgrid",
		Subsystem: "order",
		Name:      "created_total",
		Help:      "Orders successfully persisted and reserved.",
	})

	AdmissionRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shopgrid",
		Subsystem: "order",
		Name:      "admission_rejections_total",
		Help:      "Submissions rejected before the commit point.",
	}, []string{"reason"})

	ReservationConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shopgrid",
		Subsystem: "inventory",
		Name:      "reservation_conflicts_total",
		Help:      "Reserve calls that lost the stock race.",
	})

	// ReservationGaps counts orders persisted whose reservations could not be
	// completed. Those orders stay pending for reconciliation.
	ReservationGaps = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shopgrid",
		Subsystem: "order",
		Name:      "reservation_gaps_total",
		Help:      "Persisted orders left pending after a failed reservation phase.",
	})

	CompensationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shopgrid",
		Subsystem: "order",
		Name:      "compensation_failures_total",
		Help:      "Release calls that failed during cancel or delete.",
	})
)
