package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{Namespace: "meetpoint", Name: "sessions_created_total", Help: "Total sessions created"})
	JoinsTotal      = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "meetpoint", Name: "joins_total", Help: "Join attempts by outcome"},
		[]string{"outcome"},
	)
	ComputesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "meetpoint", Name: "computes_total", Help: "Compute transitions by outcome"},
		[]string{"outcome"},
	)
	ComputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "meetpoint",
		Name:      "compute_duration_seconds",
		Help:      "Wall time of the compute transition",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30},
	})
	VotesTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "meetpoint", Name: "votes_total", Help: "Votes recorded"})

	SolverNonConverged = promauto.NewCounter(prometheus.CounterOpts{Namespace: "meetpoint", Name: "solver_nonconverged_total", Help: "Solver runs that exhausted the iteration limit"})
	SolverFallbacks    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "meetpoint", Name: "solver_fallbacks_total", Help: "Solver runs that fell back to the geographic midpoint"})

	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "meetpoint", Name: "provider_calls_total", Help: "Outbound provider calls"},
		[]string{"provider"},
	)
	ProviderErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "meetpoint", Name: "provider_errors_total", Help: "Failed provider calls"},
		[]string{"provider"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "meetpoint", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "meetpoint",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
