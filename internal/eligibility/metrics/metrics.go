package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the eligibility pipeline. All methods are
// safe on a nil receiver so callers can run without metrics.
type Metrics struct {
	// Source checker latencies and outcomes
	SourceLatency *prometheus.HistogramVec
	SourceOutcome *prometheus.CounterVec

	// Dedup cache lookups by result: "hit", "miss"
	DedupLookups *prometheus.CounterVec

	// Status transitions written to checks
	Transitions *prometheus.CounterVec

	// Queue worker message handling by queue and action
	WorkerMessages *prometheus.CounterVec
	QueueDepth     *prometheus.GaugeVec

	// 1 while a breaker is open
	BreakerOpen *prometheus.GaugeVec
}

// New registers the eligibility metrics with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers with reg. Tests pass a fresh prometheus.NewRegistry().
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SourceLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eligo_source_check_duration_seconds",
			Help:    "Duration of source checker calls by source",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),

		SourceOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eligo_source_check_outcomes_total",
			Help: "Source checker outcomes by source and outcome",
		}, []string{"source", "outcome"}),

		DedupLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eligo_dedup_lookups_total",
			Help: "Dedup cache lookups by result",
		}, []string{"result"}),

		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eligo_check_transitions_total",
			Help: "Check status transitions by target status and trigger",
		}, []string{"status", "trigger"}),

		WorkerMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eligo_worker_messages_total",
			Help: "Queue messages handled by the worker by queue and action",
		}, []string{"queue", "action"}),

		QueueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "eligo_queue_depth",
			Help: "Approximate queue depth observed by the worker",
		}, []string{"queue"}),

		BreakerOpen: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "eligo_circuit_breaker_open",
			Help: "1 while the named circuit breaker is open",
		}, []string{"name"}),
	}
}

func (m *Metrics) ObserveSourceLatency(source string, d time.Duration) {
	if m != nil {
		m.SourceLatency.WithLabelValues(source).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementSourceOutcome(source, outcome string) {
	if m != nil {
		m.SourceOutcome.WithLabelValues(source, outcome).Inc()
	}
}

func (m *Metrics) IncrementDedupHit() {
	if m != nil {
		m.DedupLookups.WithLabelValues("hit").Inc()
	}
}

func (m *Metrics) IncrementDedupMiss() {
	if m != nil {
		m.DedupLookups.WithLabelValues("miss").Inc()
	}
}

// IncrementTransition records a status write. trigger is "submit", "process" or "override".
func (m *Metrics) IncrementTransition(status, trigger string) {
	if m != nil {
		m.Transitions.WithLabelValues(status, trigger).Inc()
	}
}

func (m *Metrics) IncrementWorkerMessage(queue, action string) {
	if m != nil {
		m.WorkerMessages.WithLabelValues(queue, action).Inc()
	}
}

func (m *Metrics) SetQueueDepth(queue string, depth int) {
	if m != nil {
		m.QueueDepth.WithLabelValues(queue).Set(float64(depth))
	}
}

func (m *Metrics) SetBreakerOpen(name string, open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.BreakerOpen.WithLabelValues(name).Set(v)
}
