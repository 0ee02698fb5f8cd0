// Package metrics holds the Prometheus counters of the webhook receiver and
// check gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "approvedeny"

// Metrics groups the counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	webhooks *prometheus.CounterVec
	jobs     *prometheus.CounterVec
	gateway  *prometheus.CounterVec
}

// New registers the counters on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		webhooks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhooks_total",
				Help:      "Webhook deliveries by verification and queueing result.",
			},
			[]string{"result"},
		),
		jobs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_total",
				Help:      "Webhook jobs handled by the worker pool, by outcome.",
			},
			[]string{"outcome"},
		),
		gateway: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gateway_requests_total",
				Help:      "Check gateway calls to the approvedeny API.",
			},
			[]string{"operation", "result"},
		),
	}
}

// Webhook counts one delivery.
func (m *Metrics) Webhook(result string) {
	if m == nil {
		return
	}
	m.webhooks.WithLabelValues(result).Inc()
}

// Job counts one processed job.
func (m *Metrics) Job(outcome string) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(outcome).Inc()
}

// Gateway counts one proxied API call.
func (m *Metrics) Gateway(operation, result string) {
	if m == nil {
		return
	}
	m.gateway.WithLabelValues(operation, result).Inc()
}
