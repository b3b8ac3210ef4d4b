package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SolverMetrics tracks cascade activity per strategy. It satisfies
// usecase.SolverObserver.
type SolverMetrics struct {
	registry *prometheus.Registry

	solveTotal    *prometheus.CounterVec
	solveDuration *prometheus.HistogramVec
}

func NewSolverMetrics(service string) *SolverMetrics {
	registry := prometheus.NewRegistry()

	solveTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lexrag",
			Subsystem: "solver",
			Name:      "solve_total",
			Help:      "Total option solves by strategy and outcome.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
		[]string{"strategy", "outcome"},
	)
	solveDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lexrag",
			Subsystem: "solver",
			Name:      "solve_duration_seconds",
			Help:      "Option solve duration in seconds by strategy.",
			Buckets:   prometheus.DefBuckets,
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
		[]string{"strategy"},
	)

	registry.MustRegister(solveTotal, solveDuration)

	return &SolverMetrics{
		registry:      registry,
		solveTotal:    solveTotal,
		solveDuration: solveDuration,
	}
}

func (m *SolverMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *SolverMetrics) ObserveSolve(strategy, outcome string, duration time.Duration) {
	if strategy == "" {
		strategy = "unknown"
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.solveTotal.WithLabelValues(strategy, outcome).Inc()
	m.solveDuration.WithLabelValues(strategy).Observe(duration.Seconds())
}
