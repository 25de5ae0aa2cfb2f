package notify

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"service-dispatch/internal/logx"
)

const (
	defaultPublishTimeout = 2 * time.Second
	defaultQueueSize      = 256
)

// Dispatcher publishes events best-effort from its own goroutine.
// Notify never waits on the publisher; when the queue is full the event is dropped.
type Dispatcher struct {
	pub     Publisher
	logger  logx.Logger
	results *prometheus.CounterVec
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan queued
	done   chan struct{}
}

type queued struct {
	ctx   context.Context
	event Event
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithQueueSize sets how many events may wait for the publisher.
func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan queued, n)
		}
	}
}

// NewDispatcher wraps pub and starts the publishing goroutine. results may be nil;
// it is labelled by event and result. Call Close to flush and stop.
func NewDispatcher(pub Publisher, logger logx.Logger, results *prometheus.CounterVec, timeout time.Duration, opts ...DispatcherOption) *Dispatcher {
	if pub == nil {
		pub = Nop()
	}
	if logger == nil {
		logger = logx.Nop()
	}
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	d := &Dispatcher{
		pub:     pub,
		logger:  logger,
		results: results,
		timeout: timeout,
		queue:   make(chan queued, defaultQueueSize),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	go d.run()
	return d
}

// Notify enqueues e and returns immediately. The caller's cancellation does not
// abort the publish; each publish gets its own timeout, honoured by publishers
// that watch the context.
func (d *Dispatcher) Notify(ctx context.Context, e Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(e, "dispatcher closed")
		return
	}
	select {
	case d.queue <- queued{ctx: context.WithoutCancel(ctx), event: e}:
	default:
		d.drop(e, "queue full")
	}
}

// Close stops accepting events and waits until queued ones are published
// or ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for q := range d.queue {
		d.publish(q.ctx, q.event)
	}
}

func (d *Dispatcher) publish(ctx context.Context, e Event) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.pub.Publish(ctx, e); err != nil {
		d.count(e.Type, "failed")
		d.logger.Warn("notification publish failed",
			logx.String("event", string(e.Type)),
			logx.String("event_id", e.ID),
			logx.Int64("order_id", e.OrderID),
			logx.Int64("partner_id", e.PartnerID),
			logx.Any("err", err),
		)
		return
	}
	d.count(e.Type, "sent")
}

func (d *Dispatcher) drop(e Event, reason string) {
	d.count(e.Type, "dropped")
	d.logger.Warn("notification dropped",
		logx.String("event", string(e.Type)),
		logx.String("event_id", e.ID),
		logx.Int64("order_id", e.OrderID),
		logx.String("reason", reason),
	)
}

func (d *Dispatcher) count(t EventType, result string) {
	if d.results == nil {
		return
	}
	d.results.WithLabelValues(string(t), result).Inc()
}
