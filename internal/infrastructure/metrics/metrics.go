// Package metrics exposes Prometheus instrumentation for the search session.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "flight_session"

// Search outcomes.
const (
	OutcomeSuccess    = "success"
	OutcomeEmpty      = "empty"
	OutcomeError      = "error"
	OutcomeSuperseded = "superseded"
)

// Metrics holds the collectors used by the orchestration use cases.
type Metrics struct {
	searches         *prometheus.CounterVec
	staleResponses   *prometheus.CounterVec
	debounceCollapse prometheus.Counter
	quotaRejections  *prometheus.CounterVec
	quotaCommits     *prometheus.CounterVec
	activeSessions   prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Flight searches by outcome.",
		}, []string{"outcome"}),
		staleResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_responses_total",
			Help:      "Backend responses discarded because a newer request was issued.",
		}, []string{"kind"}),
		debounceCollapse: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "debounced_changes_collapsed_total",
			Help:      "Continuous filter changes that replaced a pending debounced search.",
		}),
		quotaRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_rejections_total",
			Help:      "Staging attempts rejected because the allowance was reached.",
		}, []string{"kind"}),
		quotaCommits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_commits_total",
			Help:      "Commits of staged attachments by kind and outcome.",
		}, []string{"kind", "outcome"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Search sessions currently held in memory.",
		}),
	}

	reg.MustRegister(
		m.searches,
		m.staleResponses,
		m.debounceCollapse,
		m.quotaRejections,
		m.quotaCommits,
		m.activeSessions,
	)
	return m
}

// NewIsolated registers on a private registry. Useful for tests.
func NewIsolated() (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return New(reg), reg
}

// SearchOutcome counts a finished search.
func (m *Metrics) SearchOutcome(outcome string) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(outcome).Inc()
}

// StaleResponse counts a discarded response of the given kind ("routes", "search").
func (m *Metrics) StaleResponse(kind string) {
	if m == nil {
		return
	}
	m.staleResponses.WithLabelValues(kind).Inc()
}

// DebounceCollapsed counts a continuous change that superseded a pending one.
func (m *Metrics) DebounceCollapsed() {
	if m == nil {
		return
	}
	m.debounceCollapse.Inc()
}

// QuotaRejected counts a staging attempt refused for capacity.
func (m *Metrics) QuotaRejected(kind string) {
	if m == nil {
		return
	}
	m.quotaRejections.WithLabelValues(kind).Inc()
}

// QuotaCommitted counts a commit attempt.
func (m *Metrics) QuotaCommitted(kind string, ok bool) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if !ok {
		outcome = OutcomeError
	}
	m.quotaCommits.WithLabelValues(kind, outcome).Inc()
}

// SessionsActive sets the live session gauge.
func (m *Metrics) SessionsActive(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
