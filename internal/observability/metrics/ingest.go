package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// IngestMetrics tracks ingestion runs and per-unit outcomes. It satisfies
// usecase.IngestObserver.
type IngestMetrics struct {
	registry *prometheus.Registry

	unitTotal    *prometheus.CounterVec
	unitDuration *prometheus.HistogramVec
	runTotal     *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
}

func NewIngestMetrics(service string) *IngestMetrics {
	registry := prometheus.NewRegistry()

	unitTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lexrag",
			Subsystem: "ingest",
			Name:      "unit_total",
			Help:      "Total ingestion units processed by outcome.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
		[]string{"unit", "outcome"},
	)
	unitDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lexrag",
			Subsystem: "ingest",
			Name:      "unit_duration_seconds",
			Help:      "Per-unit ingestion duration in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
		[]string{"unit"},
	)
	runTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lexrag",
			Subsystem: "ingest",
			Name:      "run_total",
			Help:      "Total ingestion runs by outcome.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
		[]string{"outcome"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lexrag",
			Subsystem: "ingest",
			Name:      "run_duration_seconds",
			Help:      "Full ingestion run duration in seconds.",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 1800, 3600},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
		[]string{"outcome"},
	)
	registry.MustRegister(unitTotal, unitDuration, runTotal, runDuration)

	return &IngestMetrics{
		registry:     registry,
		unitTotal:    unitTotal,
		unitDuration: unitDuration,
		runTotal:     runTotal,
		runDuration:  runDuration,
	}
}

func (m *IngestMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *IngestMetrics) ObserveIngestUnit(unit, outcome string, duration time.Duration) {
	if unit == "" {
		unit = "unknown"
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.unitTotal.WithLabelValues(unit, outcome).Inc()
	m.unitDuration.WithLabelValues(unit).Observe(duration.Seconds())
}

func (m *IngestMetrics) ObserveIngestRun(outcome string, duration time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.runTotal.WithLabelValues(outcome).Inc()
	m.runDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}
