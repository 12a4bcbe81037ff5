package neosierra

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	outcomeOK       = "ok"
	outcomeError    = "error"
	outcomeRejected = "rejected"
)

// Metrics counts compile, translate and run calls of sessions.
type Metrics struct {
	Compiles   *prometheus.CounterVec
	Translates *prometheus.CounterVec
	Runs       *prometheus.CounterVec
	RunLatency prometheus.Histogram
}

// NewMetrics registers the session metrics with reg. A nil reg leaves them
// unregistered, which is convenient in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Compiles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "neosierra",
			Name:      "compile_total",
			Help:      "Model to query compilations by outcome.",
		}, []string{"outcome"}),
		Translates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "neosierra",
			Name:      "translate_total",
			Help:      "Query to model translations by outcome.",
		}, []string{"outcome"}),
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "neosierra",
			Name:      "run_total",
			Help:      "Query executions by outcome.",
		}, []string{"outcome"}),
		RunLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "neosierra",
			Name:      "run_duration_seconds",
			Help:      "Query execution latency in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
	}
}

func (m *Metrics) compiled(err error) {
	if m != nil {
		m.Compiles.WithLabelValues(outcome(err)).Inc()
	}
}

func (m *Metrics) translated(err error) {
	if m != nil {
		m.Translates.WithLabelValues(outcome(err)).Inc()
	}
}

func (m *Metrics) ran(start time.Time, err error) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(outcome(err)).Inc()
	m.RunLatency.Observe(time.Since(start).Seconds())
}

func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case isRejection(err):
		return outcomeRejected
	default:
		return outcomeError
	}
}
