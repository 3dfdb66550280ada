package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Confirmation outcome labels.
const (
	ResultSuccess          = "success"
	ResultValidationError  = "validation_error"
	ResultConflict         = "conflict"
	ResultGatewayError     = "gateway_error"
	ResultPersistenceError = "persistence_error"
	ResultError            = "error"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	ConfirmationsTotal   *prometheus.CounterVec
	GatewayRequestsTotal *prometheus.CounterVec
	GatewayRetriesTotal  *prometheus.CounterVec
	RateLimitedTotal     prometheus.Counter
}

// New creates and registers all collectors on the given registry.
func New(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConfirmationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_confirmations_total",
				Help: "Total number of subscription confirmation attempts",
			},
			[]string{"result"},
		),
		GatewayRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_gateway_requests_total",
				Help: "Total number of payment gateway requests",
			},
			[]string{"operation", "result"},
		),
		GatewayRetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_gateway_retries_total",
				Help: "Total number of retried payment gateway attempts",
			},
			[]string{"operation"},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "billing_rate_limited_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
		),
	}

	registry.MustRegister(
		m.ConfirmationsTotal,
		m.GatewayRequestsTotal,
		m.GatewayRetriesTotal,
		m.RateLimitedTotal,
	)

	return m
}
