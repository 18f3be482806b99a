package session

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric label values
const (
	resultSuccess = "success"
	resultFailure = "failure"
	resultSkipped = "skipped"

	reasonUnauthorized  = "unauthorized"
	reasonRefreshFailed = "refresh_failed"
)

// Metrics counts session transitions. A nil *Metrics records nothing.
type Metrics struct {
	logins        *prometheus.CounterVec
	refreshes     *prometheus.CounterVec
	rehydrations  *prometheus.CounterVec
	forcedLogouts *prometheus.CounterVec
}

// NewMetrics creates the session counters and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ilumina_session_logins_total",
			Help: "Token acquisitions by login or external adoption, by result.",
		}, []string{"result"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ilumina_session_refreshes_total",
			Help: "Silent refresh attempts, by result.",
		}, []string{"result"}),
		rehydrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ilumina_session_rehydrations_total",
			Help: "Startup rehydration probes, by result.",
		}, []string{"result"}),
		forcedLogouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ilumina_session_forced_logouts_total",
			Help: "Involuntary session terminations, by reason.",
		}, []string{"reason"}),
	}
	if reg != nil {
		reg.MustRegister(m.logins, m.refreshes, m.rehydrations, m.forcedLogouts)
	}
	return m
}

func (m *Metrics) login(result string) {
	if m != nil {
		m.logins.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) refresh(result string) {
	if m != nil {
		m.refreshes.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) rehydration(result string) {
	if m != nil {
		m.rehydrations.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) forcedLogout(reason string) {
	if m != nil {
		m.forcedLogouts.WithLabelValues(reason).Inc()
	}
}
