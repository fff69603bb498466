package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for transport attempts, retries, and circuit state.
// Every attempt, success or failure, is observable here.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lumen_http_requests_total",
		Help: "Total HTTP requests by final status class",
	}, []string{"status_class"})

	attemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lumen_http_attempts_total",
		Help: "Total HTTP attempts, including retries",
	}, []string{"method"})

	retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lumen_http_retries_total",
		Help: "Total retry attempts after the first try",
	})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lumen_http_request_duration_seconds",
		Help:    "Wall time per logical request, retries included",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	circuitOpensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lumen_circuit_opens_total",
		Help: "Times the circuit breaker opened, by endpoint",
	}, []string{"endpoint"})

	circuitStateGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lumen_circuit_state",
		Help: "Circuit state by endpoint: 0 closed, 1 open",
	}, []string{"endpoint"})
)

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return "error"
	}
}
