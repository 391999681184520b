package reconcile

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments reconciliation passes with prometheus collectors. A nil
// *Metrics is valid and records nothing, so instrumentation stays optional.
type Metrics struct {
	reports       prometheus.Counter
	fallbacks     prometheus.Counter
	droppedKeys   prometheus.Counter
	malformedRows prometheus.Counter
	skippedEvents prometheus.Counter
	passDuration  prometheus.Histogram
}

// NewMetrics registers the engine's collectors with reg and returns the
// recorder. Passing prometheus.DefaultRegisterer wires the process registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reports: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reefcore_survival_reports_total",
			Help: "Survival reports produced by reconciliation passes.",
		}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reefcore_survival_fallback_total",
			Help: "Reports computed via proportional estimation because no submission carried identifiers.",
		}),
		droppedKeys: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reefcore_survival_dropped_keys_total",
			Help: "Observation keys discarded because no baseline entry matched.",
		}),
		malformedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reefcore_survival_malformed_rows_total",
			Help: "Monitoring rows whose survived cell failed to parse and degraded to zero.",
		}),
		skippedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reefcore_survival_skipped_events_total",
			Help: "Observation groups skipped because the referenced outplanting event is missing.",
		}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "reefcore_survival_pass_duration_seconds",
			Help:    "Wall time of full reconciliation passes.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.reports, m.fallbacks, m.droppedKeys, m.malformedRows, m.skippedEvents, m.passDuration)
	}
	return m
}

func (m *Metrics) observeReport(stats Stats) {
	if m == nil {
		return
	}
	m.reports.Inc()
	if stats.FallbackUsed {
		m.fallbacks.Inc()
	}
	m.droppedKeys.Add(float64(stats.DroppedKeys))
}

func (m *Metrics) observeMalformedRows(n int) {
	if m == nil || n == 0 {
		return
	}
	m.malformedRows.Add(float64(n))
}

func (m *Metrics) observeSkippedEvent() {
	if m == nil {
		return
	}
	m.skippedEvents.Inc()
}

func (m *Metrics) observePass(d time.Duration) {
	if m == nil {
		return
	}
	m.passDuration.Observe(d.Seconds())
}
