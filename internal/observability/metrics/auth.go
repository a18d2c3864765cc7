// Package metrics exposes Prometheus counters for the login flow and access decisions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Login outcome label values.
const (
	OutcomeEstablished = "established"
	OutcomeDenied      = "denied"
)

// Metrics holds the auth counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Logins           *prometheus.CounterVec
	StateValidations *prometheus.CounterVec
	GuardDenials     *prometheus.CounterVec
	GatewayRedirects *prometheus.CounterVec
}

// New registers the auth counters on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_auth_logins_total",
			Help: "Completed login callbacks by outcome and denial reason",
		}, []string{"outcome", "reason"}),
		StateValidations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_auth_state_validations_total",
			Help: "Successful OAuth state validations by source (primary or fallback)",
		}, []string{"source"}),
		GuardDenials: f.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_guard_denials_total",
			Help: "Operations rejected by the operation guard",
		}, []string{"operation", "reason"}),
		GatewayRedirects: f.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_gateway_rejections_total",
			Help: "Requests redirected or rejected by the access control gateway",
		}, []string{"role", "action"}),
	}
}

// LoginEstablished counts a successful login.
func (m *Metrics) LoginEstablished() {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(OutcomeEstablished, "").Inc()
}

// LoginDenied counts a denied callback with its short reason code.
func (m *Metrics) LoginDenied(reason string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(OutcomeDenied, reason).Inc()
}

// StateValidated counts a state token accepted from source.
func (m *Metrics) StateValidated(source string) {
	if m == nil {
		return
	}
	m.StateValidations.WithLabelValues(source).Inc()
}

// GuardDenied counts a rejected operation.
func (m *Metrics) GuardDenied(operation, reason string) {
	if m == nil {
		return
	}
	m.GuardDenials.WithLabelValues(operation, reason).Inc()
}

// GatewayRejected counts a gateway redirect or 403 for role.
func (m *Metrics) GatewayRejected(role, action string) {
	if m == nil {
		return
	}
	m.GatewayRedirects.WithLabelValues(role, action).Inc()
}
