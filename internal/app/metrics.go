package app

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"service-dispatch/internal/metrics"
)

type metricsOut struct {
	dig.Out

	RateLimitExceededTotal  prometheus.Counter     `name:"rate_limit_exceeded_total"`
	GatewayRetriesTotal     prometheus.Counter     `name:"gateway_retries_total"`
	GeocodeFallbackTotal    prometheus.Counter     `name:"geocode_fallback_total"`
	NotificationsTotal      *prometheus.CounterVec `name:"dispatch_notifications_total"`
	DispatchOperationsTotal *prometheus.CounterVec `name:"dispatch_operations_total"`
	RequestsExpiredTotal    prometheus.Counter     `name:"dispatch_requests_expired_total"`
}

// provideMetrics registers every process counter on the default registerer. A collector
// registered earlier (tests, a second container) is reused.
func provideMetrics() (metricsOut, error) {
	var (
		out metricsOut
		err error
	)
	if out.RateLimitExceededTotal, err = register("rate_limit_exceeded_total", metrics.NewRateLimitExceededTotal()); err != nil {
		return metricsOut{}, err
	}
	if out.GatewayRetriesTotal, err = register("gateway_retries_total", metrics.NewGatewayRetriesTotal()); err != nil {
		return metricsOut{}, err
	}
	if out.GeocodeFallbackTotal, err = register("geocode_fallback_total", metrics.NewGeocodeFallbackTotal()); err != nil {
		return metricsOut{}, err
	}
	if out.NotificationsTotal, err = register("dispatch_notifications_total", metrics.NewNotificationsTotal()); err != nil {
		return metricsOut{}, err
	}
	if out.DispatchOperationsTotal, err = register("dispatch_operations_total", metrics.NewDispatchOperationsTotal()); err != nil {
		return metricsOut{}, err
	}
	if out.RequestsExpiredTotal, err = register("dispatch_requests_expired_total", metrics.NewRequestsExpiredTotal()); err != nil {
		return metricsOut{}, err
	}
	return out, nil
}

func register[T prometheus.Collector](name string, c T) (T, error) {
	err := prometheus.DefaultRegisterer.Register(c)
	if err == nil {
		return c, nil
	}
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(T); ok {
			return existing, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("register %s: %w", name, err)
}
