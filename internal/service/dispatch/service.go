// Package dispatch runs the delivery request lifecycle and the assignment transaction.
package dispatch

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/notify"
	"service-dispatch/internal/ports/dispatchtx"
)

// Defaults applied by NewService to zero Config fields
const (
	DefaultRequestTTL       = 24 * time.Hour
	DefaultNearbyLimit      = 50
	DefaultOperationTimeout = 3 * time.Second
)

// SiblingRejectMessage is stored on requests closed by a competing acceptance.
const SiblingRejectMessage = "assigned to another partner"

const maxMessageLength = 1000

// Config tunes the service.
type Config struct {
	RequestTTL       time.Duration
	NearbyLimit      int
	OperationTimeout time.Duration
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMetrics attaches an operations counter (labels: operation, outcome) and an expiry counter.
func WithMetrics(ops *prometheus.CounterVec, expired prometheus.Counter) Option {
	return func(s *Service) {
		s.ops = ops
		s.expired = expired
	}
}

// Service matches partners to orders and binds them through delivery requests.
type Service struct {
	repo    dispatchtx.Runner
	events  Notifier
	cfg     Config
	logger  logx.Logger
	now     func() time.Time
	ops     *prometheus.CounterVec
	expired prometheus.Counter
}

// NewService creates a dispatch Service.
func NewService(repo dispatchtx.Runner, events Notifier, cfg Config, logger logx.Logger, opts ...Option) *Service {
	if cfg.RequestTTL <= 0 {
		cfg.RequestTTL = DefaultRequestTTL
	}
	if cfg.NearbyLimit <= 0 {
		cfg.NearbyLimit = DefaultNearbyLimit
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = DefaultOperationTimeout
	}
	if logger == nil {
		logger = logx.Nop()
	}
	s := &Service{
		repo:   repo,
		events: events,
		cfg:    cfg,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.OperationTimeout)
}

func (s *Service) observe(operation string, err error) {
	if s.ops == nil {
		return
	}
	s.ops.WithLabelValues(operation, outcome(err)).Inc()
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if r := apperr.ReasonOf(err); r != "" {
		return r
	}
	if k := apperr.KindOf(err); k != "" {
		return string(k)
	}
	return "error"
}

func (s *Service) notify(ctx context.Context, events ...notify.Event) {
	if s.events == nil {
		return
	}
	for _, e := range events {
		s.events.Notify(ctx, e)
	}
}

// sweep persists expiry for stale pending requests in scope.
func (s *Service) sweep(ctx context.Context, tx dispatchtx.Repository, scope dispatchtx.ExpiryScope, now time.Time) error {
	n, err := tx.ExpireStale(ctx, scope, now)
	if err != nil {
		return err
	}
	if n > 0 {
		if s.expired != nil {
			s.expired.Add(float64(n))
		}
		s.logger.Debug("expired stale requests",
			logx.String("event", "requests_expired"),
			logx.Int64("count", n),
			logx.Int64("order_id", scope.OrderID),
			logx.Int64("partner_id", scope.PartnerID),
		)
	}
	return nil
}

var (
	errOrderNotFound      = apperr.ErrNotFound.With("order not found")
	errPartnerNotFound    = apperr.ErrNotFound.With("partner not found")
	errRequestNotFound    = apperr.ErrNotFound.With("delivery request not found")
	errAssignmentNotFound = apperr.ErrNotFound.With("assignment not found")
)

func ownsPartner(c domain.Caller, p domain.Partner) bool {
	return c.ID == p.UserID || c.HasRole(domain.RoleSystem)
}

func ownsOrder(c domain.Caller, o domain.Order) bool {
	return c.ID == o.SellerID || c.HasRole(domain.RoleSystem)
}

func validMessage(msg string) error {
	if len([]rune(msg)) > maxMessageLength {
		return apperr.ErrInvalid.With("message is too long")
	}
	return nil
}
