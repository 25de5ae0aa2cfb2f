package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/dig"

	"service-dispatch/internal/logx"
	"service-dispatch/internal/notify"
	"service-dispatch/internal/transport/kafka"
)

const shutdownTimeout = 15 * time.Second

// Runner runs the HTTP server
type Runner struct {
	runFn func(*dig.Container) error
	fatal func(string, ...interface{})
}

// NewRunner returns a new Runner
func NewRunner() *Runner {
	return &Runner{runFn: run, fatal: log.Fatalf}
}

// MustRun starts the HTTP server using the provided DI container and blocks until shutdown
func (r *Runner) MustRun(container *dig.Container) {
	err := r.runFn(container)
	if err == nil {
		return
	}
	logger := containerLogger(container)
	switch {
	case errors.Is(err, context.Canceled):
		logger.Info("shutdown requested, exiting")
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("startup aborted: startup timeout exceeded")
	default:
		fatal := r.fatal
		if fatal == nil {
			fatal = log.Fatalf
		}
		fatal("run error: %v", err)
	}
}

func containerLogger(container *dig.Container) logx.Logger {
	logger := logx.Nop()
	_ = container.Invoke(func(l logx.Logger) { logger = l })
	return logger
}

type serverIn struct {
	dig.In

	Ctx      context.Context
	Server   *http.Server
	Pool     *pgxpool.Pool
	Logger   logx.Logger
	Producer *kafka.Producer    `optional:"true"`
	Notifier *notify.Dispatcher `optional:"true"`
}

func run(container *dig.Container) error {
	return container.Invoke(func(in serverIn) error {
		errCh := startServer(in.Server, in.Logger)

		var err error
		select {
		case <-in.Ctx.Done():
			in.Logger.Info("shutting down service-dispatch")
			err = in.Ctx.Err()
		case err = <-errCh:
		}

		gracefulShutdown(in.Server, in.Logger, shutdownTimeout)
		closeResources(in.Pool, in.Notifier, in.Producer, in.Logger)
		return err
	})
}

func startServer(server *http.Server, logger logx.Logger) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("service-dispatch listening", logx.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	return errCh
}

func gracefulShutdown(srv *http.Server, logger logx.Logger, timeout time.Duration) {
	shCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		logger.Error("graceful shutdown error", logx.Any("err", err))
	}
}

func closeResources(pool *pgxpool.Pool, notifier *notify.Dispatcher, producer *kafka.Producer, logger logx.Logger) {
	if notifier != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := notifier.Close(ctx); err != nil {
			logger.Warn("notifications not flushed before shutdown", logx.Any("err", err))
		}
		cancel()
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka producer close error", logx.Any("err", err))
		}
	}
	if pool != nil {
		pool.Close()
	}
	_ = logger.Sync()
}
