package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"go.uber.org/dig"
	"google.golang.org/grpc"

	"service-dispatch/internal/config"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/gateway/geocoding"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/repository"
	"service-dispatch/internal/service/dispatch"
	"service-dispatch/internal/service/orders"
	"service-dispatch/internal/transport/kafka"
)

// geocoderConnCloser releases the geocoding gRPC connection, if one was dialed.
type geocoderConnCloser func() error

type geocoderIn struct {
	dig.In

	Config    *config.Config
	Logger    logx.Logger
	Retries   prometheus.Counter `name:"gateway_retries_total"`
	Fallbacks prometheus.Counter `name:"geocode_fallback_total"`
}

type geocoderOut struct {
	dig.Out

	Geocoder orders.Geocoder
	Closer   geocoderConnCloser
}

var dialGeocoder = geocoding.Dial

// newGeocoder builds grpc -> retry -> fallback. Without an address every lookup answers with
// the default coordinate.
func newGeocoder(in geocoderIn) (geocoderOut, error) {
	gc := in.Config.Geocoder
	def := domain.Location{Lat: gc.DefaultLat, Lng: gc.DefaultLng}

	if gc.Addr == "" {
		in.Logger.Warn("geocoder address not configured, using default location")
		return geocoderOut{
			Geocoder: geocoding.NewFallbackGateway(nil, def, in.Logger, in.Fallbacks),
			Closer:   func() error { return nil },
		}, nil
	}

	conn, err := dialGeocoder(gc.Addr)
	if err != nil {
		return geocoderOut{}, fmt.Errorf("dial geocoder %s: %w", gc.Addr, err)
	}
	retrying := geocoding.NewRetryingGateway(geocoding.NewGRPCGateway(conn), in.Logger, in.Retries, geocoding.RetryConfig{
		MaxAttempts: gc.MaxAttempts,
		BaseDelay:   gc.BaseDelay,
		MaxDelay:    gc.MaxDelay,
	})
	return geocoderOut{
		Geocoder: geocoding.NewFallbackGateway(retrying, def, in.Logger, in.Fallbacks),
		Closer:   closeConn(conn),
	}, nil
}

func closeConn(conn *grpc.ClientConn) geocoderConnCloser {
	return func() error { return conn.Close() }
}

func newOrdersProcessor(
	svc *dispatch.Service,
	repo *repository.OrderRepo,
	geo orders.Geocoder,
	logger logx.Logger,
) *orders.Processor {
	return orders.NewProcessor(svc, repo, geo, logger)
}

func newOrdersConsumer(cfg *config.Config, logger logx.Logger, p *orders.Processor) (*kafka.Consumer, error) {
	return kafka.NewConsumer(logger, cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.OrdersTopic, p.Handle)
}

// expirySweeper is the subset of dispatch.Service driven by the cron schedule.
type expirySweeper interface {
	ExpireStale(ctx context.Context) (int64, error)
}

// newExpiryScheduler returns nil when the sweep is disabled.
func newExpiryScheduler(ctx context.Context, cfg *config.Config, svc *dispatch.Service, logger logx.Logger) (*cron.Cron, error) {
	if cfg.Worker.ExpirySchedule == "" {
		return nil, nil
	}
	return scheduleExpiry(ctx, cfg.Worker.ExpirySchedule, svc, logger)
}

func scheduleExpiry(ctx context.Context, spec string, svc expirySweeper, logger logx.Logger) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(spec, func() {
		n, err := svc.ExpireStale(ctx)
		if err != nil {
			logger.Error("expiry sweep failed", logx.Any("err", err))
			return
		}
		if n > 0 {
			logger.Info("expired stale requests", logx.Int64("count", n))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("expiry schedule %q: %w", spec, err)
	}
	return c, nil
}

func registerWorker(container *dig.Container) error {
	return provideAll(container,
		newGeocoder,
		newOrdersProcessor,
		newOrdersConsumer,
		newExpiryScheduler,
	)
}
