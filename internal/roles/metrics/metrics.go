package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for the role authority.
type Metrics struct {
	CapabilityChecks *prometheus.CounterVec
	RoleChanges      *prometheus.CounterVec
	Holders          *prometheus.GaugeVec
}

// New registers collectors with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		CapabilityChecks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "quorumcred_capability_checks_total",
			Help: "Capability lookups, labeled by capability and result",
		}, []string{"capability", "result"}),
		RoleChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "quorumcred_role_changes_total",
			Help: "Effective capability grants and revocations",
		}, []string{"capability", "action"}),
		Holders: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "quorumcred_capability_holders",
			Help: "Number of addresses holding each capability, as last observed",
		}, []string{"capability"}),
	}
}

// IncrementCheck records a capability lookup; result is granted, denied or error.
func (m *Metrics) IncrementCheck(capability, result string) {
	m.CapabilityChecks.WithLabelValues(capability, result).Inc()
}

func (m *Metrics) IncrementChange(capability, action string) {
	m.RoleChanges.WithLabelValues(capability, action).Inc()
}

func (m *Metrics) SetHolders(capability string, n int) {
	m.Holders.WithLabelValues(capability).Set(float64(n))
}
