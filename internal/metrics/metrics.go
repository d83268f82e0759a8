// Package metrics holds the service's Prometheus counters.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "production_tracker"

// Outcome labels for AuthAttempt.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics is safe to use as a nil pointer; every recorder is then a no-op.
type Metrics struct {
	AuthAttempts *prometheus.CounterVec
	AccessDenied *prometheus.CounterVec
	RateLimited  *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		AuthAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "attempts_total",
			Help:      "Session operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		AccessDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rbac",
			Name:      "denied_total",
			Help:      "Requests refused by a permission or role gate.",
		}, []string{"gate"}),
		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "rejected_total",
			Help:      "Requests rejected by a rate limiter.",
		}, []string{"scope"}),
	}
}

func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.AuthAttempts, m.AccessDenied, m.RateLimited} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) AuthAttempt(operation string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.AuthAttempts.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) Denied(gate string) {
	if m == nil {
		return
	}
	m.AccessDenied.WithLabelValues(gate).Inc()
}

func (m *Metrics) Throttled(scope string) {
	if m == nil {
		return
	}
	m.RateLimited.WithLabelValues(scope).Inc()
}
