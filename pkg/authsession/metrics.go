package authsession

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics is nil-safe: a Manager without WithMetrics records nothing.
type metrics struct {
	transitions   *prometheus.CounterVec
	validations   *prometheus.CounterVec
	authenticated prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "focusforge",
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Session state transitions by event and resulting state.",
		}, []string{"event", "state"}),
		validations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "focusforge",
			Subsystem: "session",
			Name:      "validations_total",
			Help:      "Remote credential validations by outcome.",
		}, []string{"outcome"}),
		authenticated: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "focusforge",
			Subsystem: "session",
			Name:      "authenticated",
			Help:      "1 while a user is signed in.",
		}),
	}
}

func (m *metrics) transition(event string, to State) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(event, to.Name()).Inc()
	if to.IsAuthenticated() {
		m.authenticated.Set(1)
	} else {
		m.authenticated.Set(0)
	}
}

func (m *metrics) validation(outcome string) {
	if m == nil {
		return
	}
	m.validations.WithLabelValues(outcome).Inc()
}
