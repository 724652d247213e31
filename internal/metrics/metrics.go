// Package metrics holds the prometheus counters exported by the session
// gateway. A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Request outcomes recorded by the gateway.
const (
	OutcomePassed    = "passed"
	OutcomeRetried   = "retried"
	OutcomeExpired   = "expired"
	OutcomeTransport = "transport_error"
)

// Refresh results recorded by the session machine.
const (
	RefreshSucceeded = "succeeded"
	RefreshFailed    = "failed"
	RefreshSkipped   = "skipped"
	RefreshStale     = "stale"
)

type Metrics struct {
	requests    *prometheus.CounterVec
	refreshes   *prometheus.CounterVec
	transitions *prometheus.CounterVec
}

// New creates the counters and registers them with reg. A nil registerer
// leaves them unregistered, which is what tests usually want.
func New(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Outbound requests issued through the gateway, by outcome.",
		}, []string{"outcome"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "refreshes_total",
			Help:      "Token refresh attempts, by result.",
		}, []string{"result"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Published session states, by status.",
		}, []string{"status"}),
	}

	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.requests, m.refreshes, m.transitions} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) Request(outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Refresh(result string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) Transition(status string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(status).Inc()
}

// Requests exposes the request counter for scraping in tests.
func (m *Metrics) Requests() *prometheus.CounterVec { return m.requests }

func (m *Metrics) Refreshes() *prometheus.CounterVec { return m.refreshes }

func (m *Metrics) Transitions() *prometheus.CounterVec { return m.transitions }
