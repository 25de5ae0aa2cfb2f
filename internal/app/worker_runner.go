package app

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
	"go.uber.org/dig"
	"golang.org/x/sync/errgroup"

	"service-dispatch/internal/logx"
	"service-dispatch/internal/notify"
	"service-dispatch/internal/transport/kafka"
)

// WorkerRunner runs the order events consumer and the expiry sweep
type WorkerRunner struct {
	runFn func(*dig.Container) error
}

// NewWorkerRunner returns a new WorkerRunner
func NewWorkerRunner() *WorkerRunner {
	return &WorkerRunner{runFn: runWorker}
}

// MustRun starts the worker using the provided DI container
func (r *WorkerRunner) MustRun(container *dig.Container) {
	err := r.runFn(container)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	panic(err)
}

type workerIn struct {
	dig.In

	Ctx       context.Context
	Pool      *pgxpool.Pool
	Logger    logx.Logger
	Consumer  *kafka.Consumer
	Scheduler *cron.Cron
	Producer  *kafka.Producer    `optional:"true"`
	Notifier  *notify.Dispatcher `optional:"true"`
	Geocoder  geocoderConnCloser `optional:"true"`
}

func runWorker(container *dig.Container) error {
	return container.Invoke(func(in workerIn) error {
		defer closeWorker(in)
		return workerRun(in.Ctx, in.Logger, in.Consumer, in.Scheduler)
	})
}

func workerRun(ctx context.Context, logger logx.Logger, consumer *kafka.Consumer, scheduler *cron.Cron) error {
	if consumer == nil && scheduler == nil {
		return errors.New("worker has nothing to run: kafka consumer and expiry schedule are both disabled")
	}
	if consumer == nil {
		logger.Warn("kafka consumer disabled, running expiry sweep only")
	}

	g, gctx := errgroup.WithContext(ctx)
	if consumer != nil {
		g.Go(func() error { return consumer.Run(gctx) })
	}
	if scheduler != nil {
		scheduler.Start()
		g.Go(func() error {
			<-gctx.Done()
			// ждём завершения текущего прогона
			<-scheduler.Stop().Done()
			return nil
		})
	}

	logger.Info("service-dispatch-worker started")
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return err
}

func closeWorker(in workerIn) {
	if in.Consumer != nil {
		if err := in.Consumer.Close(); err != nil {
			in.Logger.Error("kafka close error", logx.Any("err", err))
		}
	}
	if in.Geocoder != nil {
		if err := in.Geocoder(); err != nil {
			in.Logger.Error("geocoder close error", logx.Any("err", err))
		}
	}
	closeResources(in.Pool, in.Notifier, in.Producer, in.Logger)
}
