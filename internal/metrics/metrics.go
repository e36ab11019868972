// Package metrics holds the Prometheus collectors shared by the client core.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "reread"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	tokenRefreshes *prometheus.CounterVec
	authRetries    prometheus.Counter
	cacheWrites    *prometheus.CounterVec
	shares         *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		tokenRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refreshes_total",
			Help:      "Refresh attempts made after an authorization failure, by outcome.",
		}, []string{"outcome"}),
		authRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_retries_total",
			Help:      "Requests retried once with a new access token.",
		}),
		cacheWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_writes_total",
			Help:      "Write-through attempts into the local cache, by outcome.",
		}, []string{"outcome"}),
		shares: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shares_total",
			Help:      "Shared URLs handled by the inbox, by action.",
		}, []string{"action"}),
	}
	reg.MustRegister(m.tokenRefreshes, m.authRetries, m.cacheWrites, m.shares)
	return m
}

func (m *Metrics) TokenRefresh(outcome string) {
	if m == nil {
		return
	}
	m.tokenRefreshes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AuthRetry() {
	if m == nil {
		return
	}
	m.authRetries.Inc()
}

func (m *Metrics) CacheWrite(outcome string) {
	if m == nil {
		return
	}
	m.cacheWrites.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Share(action string) {
	if m == nil {
		return
	}
	m.shares.WithLabelValues(action).Inc()
}
