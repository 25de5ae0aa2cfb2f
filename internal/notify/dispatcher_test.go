package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	testlog "service-dispatch/internal/testutil"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
	ctxErr error
}

func (p *recordingPublisher) Publish(ctx context.Context, e Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	p.ctxErr = ctx.Err()
	return p.err
}

func newResults() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_notifications_total"}, []string{"event", "result"})
}

func TestDispatcher_Sent(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{}
	results := newResults()
	d := NewDispatcher(pub, nil, results, time.Second)

	e := New(RequestAccepted, 7, 3, time.Now())
	d.Notify(context.Background(), e)
	require.NoError(t, d.Close(context.Background()))

	require.Len(t, pub.events, 1)
	require.Equal(t, e, pub.events[0])
	require.Equal(t, 1.0, testutil.ToFloat64(results.WithLabelValues("request_accepted", "sent")))
}

func TestDispatcher_FailureIsLoggedNotReturned(t *testing.T) {
	t.Parallel()

	rec := testlog.New()
	pub := &recordingPublisher{err: errors.New("broker down")}
	results := newResults()
	d := NewDispatcher(pub, rec.Logger(), results, time.Second)

	d.Notify(context.Background(), New(OrderNearby, 1, 2, time.Now()))
	require.NoError(t, d.Close(context.Background()))

	require.Equal(t, 1.0, testutil.ToFloat64(results.WithLabelValues("order_nearby", "failed")))
	entry, ok := rec.Find("notification publish failed")
	require.True(t, ok)
	require.Equal(t, "warn", entry.Level)
	require.Equal(t, int64(1), entry.Field("order_id"))
}

func TestDispatcher_DetachedFromCallerCancellation(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{}
	d := NewDispatcher(pub, nil, nil, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Notify(ctx, New(RequestRejected, 1, 2, time.Now()))
	require.NoError(t, d.Close(context.Background()))

	require.Len(t, pub.events, 1)
	require.NoError(t, pub.ctxErr)
}

// blockingPublisher holds every publish until release is closed.
type blockingPublisher struct {
	release chan struct{}
	started chan struct{}
	once    sync.Once
}

func newBlockingPublisher() *blockingPublisher {
	return &blockingPublisher{release: make(chan struct{}), started: make(chan struct{})}
}

func (p *blockingPublisher) Publish(context.Context, Event) error {
	p.once.Do(func() { close(p.started) })
	<-p.release
	return nil
}

func TestDispatcher_NotifyDoesNotWaitForPublisher(t *testing.T) {
	t.Parallel()

	pub := newBlockingPublisher()
	results := newResults()
	d := NewDispatcher(pub, nil, results, 50*time.Millisecond)

	start := time.Now()
	for i := 0; i < 3; i++ {
		d.Notify(context.Background(), New(RequestRejected, int64(i), 2, time.Now()))
	}
	require.Less(t, time.Since(start), 500*time.Millisecond)

	close(pub.release)
	require.NoError(t, d.Close(context.Background()))
	require.Equal(t, 3.0, testutil.ToFloat64(results.WithLabelValues("request_rejected", "sent")))
}

func TestDispatcher_DropsWhenQueueFull(t *testing.T) {
	t.Parallel()

	rec := testlog.New()
	pub := newBlockingPublisher()
	results := newResults()
	d := NewDispatcher(pub, rec.Logger(), results, time.Second, WithQueueSize(1))

	d.Notify(context.Background(), New(OrderNearby, 1, 2, time.Now()))
	<-pub.started // first event held by the publisher, queue empty
	d.Notify(context.Background(), New(OrderNearby, 2, 2, time.Now()))
	d.Notify(context.Background(), New(OrderNearby, 3, 2, time.Now()))

	require.Equal(t, 1.0, testutil.ToFloat64(results.WithLabelValues("order_nearby", "dropped")))
	entry, ok := rec.Find("notification dropped")
	require.True(t, ok)
	require.Equal(t, "queue full", entry.Field("reason"))

	close(pub.release)
	require.NoError(t, d.Close(context.Background()))
	require.Equal(t, 2.0, testutil.ToFloat64(results.WithLabelValues("order_nearby", "sent")))
}

func TestDispatcher_CloseHonoursDeadlineAndRejectsLateEvents(t *testing.T) {
	t.Parallel()

	pub := newBlockingPublisher()
	results := newResults()
	d := NewDispatcher(pub, nil, results, time.Second)

	d.Notify(context.Background(), New(RequestCreated, 1, 2, time.Now()))
	<-pub.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)

	d.Notify(context.Background(), New(RequestCreated, 2, 2, time.Now()))
	require.Equal(t, 1.0, testutil.ToFloat64(results.WithLabelValues("request_created", "dropped")))

	close(pub.release)
	require.NoError(t, d.Close(context.Background()))
}

func TestNew_UniqueIDsAndKey(t *testing.T) {
	t.Parallel()

	a := New(RequestCreated, 42, 1, time.Now())
	b := New(RequestCreated, 42, 1, time.Now())

	require.NotEqual(t, a.ID, b.ID)
	require.Equal(t, "order-42", a.Key())
	require.NoError(t, Nop().Publish(context.Background(), a))
}
