package emergency

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the alert subsystem.
type Metrics struct {
	AlertsTriggered *prometheus.CounterVec
	ChannelSends    *prometheus.CounterVec
	AlertsResolved  prometheus.Counter
}

// NewMetrics registers and returns alert metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AlertsTriggered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "safevoice_alerts_triggered_total",
			Help: "Total emergency alerts created, by trigger type.",
		}, []string{"trigger"}),
		ChannelSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "safevoice_alert_channel_sends_total",
			Help: "Total channel dispatch attempts by channel and outcome.",
		}, []string{"channel", "outcome"}),
		AlertsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "safevoice_alerts_resolved_total",
			Help: "Total alerts resolved by their counselor.",
		}),
	}

	reg.MustRegister(
		m.AlertsTriggered,
		m.ChannelSends,
		m.AlertsResolved,
	)

	return m
}
