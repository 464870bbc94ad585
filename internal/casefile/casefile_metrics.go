package casefile

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the case subsystem.
type Metrics struct {
	CasesCreated      prometheus.Counter
	Claims            *prometheus.CounterVec
	AutoAssigns       *prometheus.CounterVec
	StatusTransitions *prometheus.CounterVec
	RiskUpdates       *prometheus.CounterVec
}

// NewMetrics registers and returns case metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CasesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "safevoice_cases_created_total",
			Help: "Total cases opened from submitted reports.",
		}),
		Claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "safevoice_case_claims_total",
			Help: "Total claim attempts by outcome (won, lost).",
		}, []string{"outcome"}),
		AutoAssigns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "safevoice_case_auto_assigns_total",
			Help: "Total auto-assignment attempts by outcome.",
		}, []string{"outcome"}),
		StatusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "safevoice_case_status_transitions_total",
			Help: "Total case status transitions by from/to status.",
		}, []string{"from", "to"}),
		RiskUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "safevoice_case_risk_updates_total",
			Help: "Total risk level updates by new level.",
		}, []string{"level"}),
	}

	reg.MustRegister(
		m.CasesCreated,
		m.Claims,
		m.AutoAssigns,
		m.StatusTransitions,
		m.RiskUpdates,
	)

	return m
}
