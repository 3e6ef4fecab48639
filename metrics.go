package authcore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the prometheus instruments of the service. All methods are
// nil-safe so that a service built without a registerer records nothing.
type metrics struct {
	logins       *prometheus.CounterVec
	refreshes    *prometheus.CounterVec
	verification *prometheus.CounterVec
	signups      prometheus.Counter
	logouts      prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}
	f := promauto.With(reg)
	return &metrics{
		logins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authcore",
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authcore",
			Name:      "refresh_redemptions_total",
			Help:      "Refresh-cookie redemptions by result.",
		}, []string{"result"}),
		verification: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authcore",
			Name:      "verification_secrets_total",
			Help:      "Verification-secret operations by flow and result.",
		}, []string{"flow", "result"}),
		signups: f.NewCounter(prometheus.CounterOpts{
			Namespace: "authcore",
			Name:      "signups_total",
			Help:      "Accounts created.",
		}),
		logouts: f.NewCounter(prometheus.CounterOpts{
			Namespace: "authcore",
			Name:      "logouts_total",
			Help:      "Logout calls.",
		}),
	}
}

func (m *metrics) login(result string) {
	if m != nil {
		m.logins.WithLabelValues(result).Inc()
	}
}

func (m *metrics) refresh(result string) {
	if m != nil {
		m.refreshes.WithLabelValues(result).Inc()
	}
}

func (m *metrics) verify(flow, result string) {
	if m != nil {
		m.verification.WithLabelValues(flow, result).Inc()
	}
}

func (m *metrics) signup() {
	if m != nil {
		m.signups.Inc()
	}
}

func (m *metrics) logout() {
	if m != nil {
		m.logouts.Inc()
	}
}
