// Package metrics defines the Prometheus collectors for the poll engine.
// Collectors register on the default registry; the ops server exposes them
// via promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cycle outcome label values.
const (
	OutcomeCompleted    = "completed"
	OutcomeDegraded     = "degraded"
	OutcomeRateLimited  = "rate_limited"
	OutcomeAuthRequired = "auth_required"
)

var (
	// CyclesTotal counts poll cycles by outcome.
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "changepoll_cycles_total",
		Help: "Poll cycles run, by outcome.",
	}, []string{"outcome"})

	// EntitiesClassified counts classified entities by change kind.
	EntitiesClassified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "changepoll_entities_classified_total",
		Help: "Entities classified, by change kind.",
	}, []string{"change"})

	// FetchFailures counts endpoint fetches that failed for a cycle.
	FetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "changepoll_fetch_failures_total",
		Help: "Endpoint fetches that failed.",
	})

	// DispatchFailures counts events that failed to reach the sink.
	DispatchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "changepoll_dispatch_failures_total",
		Help: "Events that failed to reach the downstream sink.",
	})

	// CycleDuration observes end-to-end cycle duration.
	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "changepoll_cycle_duration_seconds",
		Help:    "End-to-end poll cycle duration.",
		Buckets: prometheus.DefBuckets,
	})
)
