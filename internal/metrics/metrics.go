package metrics

import "github.com/prometheus/client_golang/prometheus"

// NewRateLimitExceededTotal returns a Prometheus counter for the number of rejected HTTP requests due to rate limiting
func NewRateLimitExceededTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_limit_exceeded_total",
		Help: "Total number of rejected HTTP requests due to rate limiting",
	})
}

// NewGatewayRetriesTotal returns a Prometheus counter for the number of retry attempts performed by gateways
func NewGatewayRetriesTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gateway_retries_total",
		Help: "Total number of retry attempts performed by gateways",
	})
}

// NewGeocodeFallbackTotal counts geocoding failures answered with the default coordinate
func NewGeocodeFallbackTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geocode_fallback_total",
		Help: "Total number of geocoding failures answered with the configured default coordinate",
	})
}

// NewNotificationsTotal counts dispatch notifications by event type and result (sent, failed)
func NewNotificationsTotal() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_notifications_total",
		Help: "Total number of dispatch notifications by event type and result",
	}, []string{"event", "result"})
}

// NewDispatchOperationsTotal counts dispatch operations by operation and outcome reason
func NewDispatchOperationsTotal() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_operations_total",
		Help: "Total number of dispatch operations by operation and outcome",
	}, []string{"operation", "outcome"})
}

// NewRequestsExpiredTotal counts pending requests moved to expired by sweeps
func NewRequestsExpiredTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_requests_expired_total",
		Help: "Total number of pending delivery requests marked expired by sweeps",
	})
}
