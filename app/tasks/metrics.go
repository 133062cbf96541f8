package tasks

import (
	"time"

	"github.com/lysyi3m/news-comb/app/database"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "ingest"

type Metrics struct {
	ItemsTotal          *prometheus.CounterVec
	SourceFailuresTotal *prometheus.CounterVec
	CycleDuration       *prometheus.HistogramVec
}

// NewMetrics registers the ingest metrics with reg, or with the default
// registerer when reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Metrics{
		ItemsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "items_total",
				Help:      "Candidates applied to the store by outcome",
			},
			[]string{"kind", "outcome"},
		),
		SourceFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "source_failures_total",
				Help:      "Sources that failed as a whole during a cycle",
			},
			[]string{"kind"},
		),
		CycleDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "cycle_duration_seconds",
				Help:      "Duration of complete ingest cycles",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"kind"},
		),
	}
}

func (m *Metrics) itemApplied(kind Kind, result database.InsertResult) {
	if m == nil {
		return
	}
	m.ItemsTotal.WithLabelValues(string(kind), result.String()).Inc()
}

func (m *Metrics) sourceFailed(kind Kind) {
	if m == nil {
		return
	}
	m.SourceFailuresTotal.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) cycleFinished(kind Kind, duration time.Duration) {
	if m == nil {
		return
	}
	m.CycleDuration.WithLabelValues(string(kind)).Observe(duration.Seconds())
}
