package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service-wide Prometheus metrics. Per-package metrics
// (registry gauge, revocation latency) live next to the code they observe.
type Metrics struct {
	FederationLogins  prometheus.Counter
	AccountsCreated   prometheus.Counter
	FederationFailed  prometheus.Counter
	MessagesConsumed  *prometheus.CounterVec
	MessagesPublished *prometheus.CounterVec
}

// New creates and registers all service-wide Prometheus metrics. Call once
// per process; components tolerate a nil *Metrics so tests can skip it.
func New() *Metrics {
	return &Metrics{
		FederationLogins: promauto.NewCounter(prometheus.CounterOpts{
			Name: "auth_federation_logins_total",
			Help: "Completed federated logins (code and native token paths)",
		}),
		AccountsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "auth_accounts_created_total",
			Help: "Accounts provisioned through the peer account service",
		}),
		FederationFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "auth_federation_failures_total",
			Help: "Federated logins aborted by a pipeline stage failure",
		}),
		MessagesConsumed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_broker_messages_consumed_total",
			Help: "Broker messages consumed, by topic",
		}, []string{"topic"}),
		MessagesPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_broker_messages_published_total",
			Help: "Broker messages published, by topic",
		}, []string{"topic"}),
	}
}

// IncLogin increments the completed-logins counter.
func (m *Metrics) IncLogin() {
	if m == nil {
		return
	}
	m.FederationLogins.Inc()
}

// IncAccountCreated increments the provisioned-accounts counter.
func (m *Metrics) IncAccountCreated() {
	if m == nil {
		return
	}
	m.AccountsCreated.Inc()
}

// IncLoginFailed increments the aborted-logins counter.
func (m *Metrics) IncLoginFailed() {
	if m == nil {
		return
	}
	m.FederationFailed.Inc()
}

// IncConsumed increments the consumed counter for a topic.
func (m *Metrics) IncConsumed(topic string) {
	if m == nil {
		return
	}
	m.MessagesConsumed.WithLabelValues(topic).Inc()
}

// IncPublished increments the published counter for a topic.
func (m *Metrics) IncPublished(topic string) {
	if m == nil {
		return
	}
	m.MessagesPublished.WithLabelValues(topic).Inc()
}
