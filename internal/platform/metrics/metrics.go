package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for lookups, checks and sweeps.
// All methods are safe on a nil receiver so callers can run without metrics.
type Metrics struct {
	// Source lookup latency by jurisdiction and operation
	LookupDuration *prometheus.HistogramVec

	// Lookup results by jurisdiction and kind (record, not_found, failure)
	LookupResults *prometheus.CounterVec

	// Check outcomes by flow (verify, monitor) and outcome (ok, alert, error)
	CheckOutcomes *prometheus.CounterVec

	// 1 while a source is failing repeatedly, by source (CA, FL, TX, NAIC)
	SourceDegraded *prometheus.GaugeVec

	SweepDuration prometheus.Histogram
	SweepsSkipped prometheus.Counter
}

// New creates the collectors and registers them with reg. Pass
// prometheus.DefaultRegisterer in main and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LookupDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "licensecheck_lookup_duration_seconds",
			Help:    "Duration of license source lookups",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 90},
		}, []string{"jurisdiction", "operation"}),

		LookupResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "licensecheck_lookup_results_total",
			Help: "License lookup results by jurisdiction and result kind",
		}, []string{"jurisdiction", "kind"}),

		CheckOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "licensecheck_check_outcomes_total",
			Help: "License check outcomes by flow",
		}, []string{"flow", "outcome"}),

		SourceDegraded: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "licensecheck_source_degraded",
			Help: "Whether a license source is currently failing repeatedly",
		}, []string{"source"}),

		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "licensecheck_sweep_duration_seconds",
			Help:    "Duration of a full monitoring sweep",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		}),

		SweepsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "licensecheck_sweeps_skipped_total",
			Help: "Sweeps skipped because another instance held the lock",
		}),
	}
}

// ObserveLookup records one lookup's latency.
func (m *Metrics) ObserveLookup(jurisdiction, operation string, d time.Duration) {
	if m != nil {
		m.LookupDuration.WithLabelValues(jurisdiction, operation).Observe(d.Seconds())
	}
}

// IncrementLookupResult counts one lookup by the kind of its leading result.
func (m *Metrics) IncrementLookupResult(jurisdiction, kind string) {
	if m != nil {
		m.LookupResults.WithLabelValues(jurisdiction, kind).Inc()
	}
}

// IncrementOutcome records a check outcome.
func (m *Metrics) IncrementOutcome(flow, outcome string) {
	if m != nil {
		m.CheckOutcomes.WithLabelValues(flow, outcome).Inc()
	}
}

// SetSourceDegraded flags a source as degraded or recovered.
func (m *Metrics) SetSourceDegraded(source string, degraded bool) {
	if m == nil {
		return
	}
	v := 0.0
	if degraded {
		v = 1
	}
	m.SourceDegraded.WithLabelValues(source).Set(v)
}

// ObserveSweep records the total duration of a sweep.
func (m *Metrics) ObserveSweep(d time.Duration) {
	if m != nil {
		m.SweepDuration.Observe(d.Seconds())
	}
}

// IncrementSweepSkipped counts a sweep that did not run.
func (m *Metrics) IncrementSweepSkipped() {
	if m != nil {
		m.SweepsSkipped.Inc()
	}
}
