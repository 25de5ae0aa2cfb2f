package dispatch

import (
	"context"
	"math"
	"time"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/geo"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/notify"
	"service-dispatch/internal/ports/dispatchtx"
	"service-dispatch/internal/service/eligibility"
	"service-dispatch/internal/service/fee"
)

// CreateRequestInput describes a new delivery request.
type CreateRequestInput struct {
	OrderID   int64
	PartnerID int64
	Type      domain.RequestType
	// ProposedFee overrides the computed fee when set.
	ProposedFee *float64
	Message     string
	ExpiresAt   *time.Time
}

func (in CreateRequestInput) validate(now time.Time) error {
	switch {
	case in.OrderID <= 0:
		return apperr.ErrInvalid.With("order_id is required")
	case in.PartnerID <= 0:
		return apperr.ErrInvalid.With("partner_id is required")
	case !in.Type.Valid():
		return apperr.ErrInvalid.With("unknown request_type")
	}
	if in.ProposedFee != nil {
		f := *in.ProposedFee
		if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			return apperr.ErrInvalid.With("proposed_fee must be a non-negative amount")
		}
	}
	if in.ExpiresAt != nil && !in.ExpiresAt.After(now) {
		return apperr.ErrInvalid.With("expires_at must be in the future")
	}
	return validMessage(in.Message)
}

// CreateRequest opens a pending delivery request between a partner and an order.
func (s *Service) CreateRequest(ctx context.Context, caller domain.Caller, in CreateRequestInput) (_ domain.DeliveryRequest, err error) {
	defer func() { s.observe("create_request", err) }()

	now := s.now()
	if err := in.validate(now); err != nil {
		return domain.DeliveryRequest{}, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var req domain.DeliveryRequest
	err = s.repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		order, err := tx.LockOrder(ctx, in.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return errOrderNotFound
		}
		partner, err := tx.GetPartner(ctx, in.PartnerID)
		if err != nil {
			return err
		}
		if partner == nil {
			return errPartnerNotFound
		}

		if !in.Type.CanInitiate(caller, *order, *partner) {
			return apperr.ErrPermissionDenied
		}
		if !order.Status.Requestable() {
			return apperr.ErrOrderNotDispatchable
		}
		if order.Assigned() {
			return apperr.ErrOrderAlreadyAssigned
		}
		if err := eligibility.Check(*partner); err != nil {
			return err
		}

		scope := dispatchtx.ExpiryScope{OrderID: order.ID, PartnerID: partner.ID}
		if err := s.sweep(ctx, tx, scope, now); err != nil {
			return err
		}
		pending, err := tx.HasPendingRequest(ctx, order.ID, partner.ID)
		if err != nil {
			return err
		}
		if pending {
			return apperr.ErrPendingRequestExists
		}

		proposed, err := proposedFee(in.ProposedFee, *partner, *order)
		if err != nil {
			return err
		}

		expires := now.Add(s.cfg.RequestTTL)
		if in.ExpiresAt != nil {
			expires = in.ExpiresAt.UTC()
		}
		req = domain.DeliveryRequest{
			OrderID:     order.ID,
			PartnerID:   partner.ID,
			Type:        in.Type,
			Status:      domain.RequestPending,
			ProposedFee: proposed,
			Message:     in.Message,
			RequestedBy: caller.ID,
			ExpiresAt:   expires,
			CreatedAt:   now,
		}
		return tx.InsertRequest(ctx, &req)
	})
	if err != nil {
		return domain.DeliveryRequest{}, err
	}

	s.logger.Info("delivery request created",
		logx.String("event", "request_created"),
		logx.Int64("request_id", req.ID),
		logx.Int64("order_id", req.OrderID),
		logx.Int64("partner_id", req.PartnerID),
		logx.String("type", string(req.Type)),
		logx.Float64("proposed_fee", req.ProposedFee),
		logx.Time("expires_at", req.ExpiresAt),
	)

	ev := notify.New(notify.RequestCreated, req.OrderID, req.PartnerID, now)
	ev.RequestID = req.ID
	ev.Fee = req.ProposedFee
	ev.Message = req.Message
	s.notify(ctx, ev)

	return req, nil
}

// proposedFee returns the override when present, otherwise the partner's computed fee.
func proposedFee(override *float64, p domain.Partner, o domain.Order) (float64, error) {
	if override != nil {
		return geo.Round2(*override), nil
	}
	return estimateFee(p, o)
}

func estimateFee(p domain.Partner, o domain.Order) (float64, error) {
	var distance float64
	if p.Rates.UsesDistance() {
		if p.Location == nil {
			return 0, apperr.ErrLocationRequired
		}
		if o.DeliveryLocation == nil {
			return 0, apperr.ErrLocationRequired.With("order delivery location is required")
		}
		distance = geo.HaversineKm(p.Location.Lat, p.Location.Lng, o.DeliveryLocation.Lat, o.DeliveryLocation.Lng)
	}
	return fee.Compute(p.Rates, distance, o.TotalAmount)
}

// RejectRequest closes a pending request on behalf of its counterparty.
func (s *Service) RejectRequest(ctx context.Context, caller domain.Caller, requestID int64, message string) (_ domain.DeliveryRequest, err error) {
	defer func() { s.observe("reject_request", err) }()

	if requestID <= 0 {
		return domain.DeliveryRequest{}, apperr.ErrInvalid.With("request id is required")
	}
	if err := validMessage(message); err != nil {
		return domain.DeliveryRequest{}, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := s.now()
	var req domain.DeliveryRequest
	err = s.repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		r, order, partner, err := s.loadRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if !r.Type.CanRespond(caller, order, partner) {
			return apperr.ErrPermissionDenied
		}
		if err := pendingAt(r, now); err != nil {
			return err
		}
		if err := tx.UpdateRequestStatus(ctx, r.ID, domain.RequestRejected, message, now); err != nil {
			return err
		}
		req = closed(r, domain.RequestRejected, message, now)
		return nil
	})
	if err != nil {
		return domain.DeliveryRequest{}, err
	}

	s.logger.Info("delivery request rejected",
		logx.String("event", "request_rejected"),
		logx.Int64("request_id", req.ID),
		logx.Int64("order_id", req.OrderID),
		logx.Int64("partner_id", req.PartnerID),
		logx.Int64("caller_id", caller.ID),
	)

	ev := notify.New(notify.RequestRejected, req.OrderID, req.PartnerID, now)
	ev.RequestID = req.ID
	ev.Message = message
	s.notify(ctx, ev)

	return req, nil
}

// CancelRequest withdraws a pending request on behalf of the party that created it.
func (s *Service) CancelRequest(ctx context.Context, caller domain.Caller, requestID int64) (_ domain.DeliveryRequest, err error) {
	defer func() { s.observe("cancel_request", err) }()

	if requestID <= 0 {
		return domain.DeliveryRequest{}, apperr.ErrInvalid.With("request id is required")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := s.now()
	var req domain.DeliveryRequest
	err = s.repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		r, err := tx.LockRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if r == nil {
			return errRequestNotFound
		}
		if r.RequestedBy != caller.ID {
			return apperr.ErrPermissionDenied
		}
		if err := pendingAt(*r, now); err != nil {
			return err
		}
		if err := tx.UpdateRequestStatus(ctx, r.ID, domain.RequestCancelled, "", now); err != nil {
			return err
		}
		req = closed(*r, domain.RequestCancelled, "", now)
		return nil
	})
	if err != nil {
		return domain.DeliveryRequest{}, err
	}

	s.logger.Info("delivery request cancelled",
		logx.String("event", "request_cancelled"),
		logx.Int64("request_id", req.ID),
		logx.Int64("order_id", req.OrderID),
		logx.Int64("partner_id", req.PartnerID),
	)

	ev := notify.New(notify.RequestCancelled, req.OrderID, req.PartnerID, now)
	ev.RequestID = req.ID
	s.notify(ctx, ev)

	return req, nil
}

// GetRequest returns a request visible to the caller, with its effective status.
func (s *Service) GetRequest(ctx context.Context, caller domain.Caller, requestID int64) (domain.DeliveryRequest, error) {
	if requestID <= 0 {
		return domain.DeliveryRequest{}, apperr.ErrInvalid.With("request id is required")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := s.now()
	var req domain.DeliveryRequest
	err := s.repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		r, order, partner, err := s.loadRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if !ownsPartner(caller, partner) && !ownsOrder(caller, order) {
			return apperr.ErrPermissionDenied
		}
		r.Status = r.EffectiveStatus(now)
		req = r
		return nil
	})
	if err != nil {
		return domain.DeliveryRequest{}, err
	}
	return req, nil
}

// ListPartnerRequests returns every request of a partner, newest first.
func (s *Service) ListPartnerRequests(ctx context.Context, caller domain.Caller, partnerID int64) ([]domain.DeliveryRequest, error) {
	if partnerID <= 0 {
		return nil, apperr.ErrInvalid.With("partner id is required")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := s.now()
	var out []domain.DeliveryRequest
	err := s.repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		p, err := tx.GetPartner(ctx, partnerID)
		if err != nil {
			return err
		}
		if p == nil {
			return errPartnerNotFound
		}
		if !ownsPartner(caller, *p) {
			return apperr.ErrPermissionDenied
		}
		if err := s.sweep(ctx, tx, dispatchtx.ExpiryScope{PartnerID: partnerID}, now); err != nil {
			return err
		}
		out, err = tx.ListRequests(ctx, dispatchtx.RequestFilter{PartnerID: partnerID})
		return err
	})
	if err != nil {
		return nil, err
	}
	return effective(out, now), nil
}

// ListOrderRequests returns every request of an order, newest first. Only the seller sees them.
func (s *Service) ListOrderRequests(ctx context.Context, caller domain.Caller, orderID int64) ([]domain.DeliveryRequest, error) {
	if orderID <= 0 {
		return nil, apperr.ErrInvalid.With("order id is required")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := s.now()
	var out []domain.DeliveryRequest
	err := s.repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		o, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if o == nil {
			return errOrderNotFound
		}
		if !ownsOrder(caller, *o) {
			return apperr.ErrPermissionDenied
		}
		if err := s.sweep(ctx, tx, dispatchtx.ExpiryScope{OrderID: orderID}, now); err != nil {
			return err
		}
		out, err = tx.ListRequests(ctx, dispatchtx.RequestFilter{OrderID: orderID})
		return err
	})
	if err != nil {
		return nil, err
	}
	return effective(out, now), nil
}

// ExpireStale marks every stale pending request expired and returns how many changed.
func (s *Service) ExpireStale(ctx context.Context) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := s.now()
	var n int64
	err := s.repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		var err error
		n, err = tx.ExpireStale(ctx, dispatchtx.ExpiryScope{}, now)
		return err
	})
	if err != nil {
		return 0, err
	}
	if n > 0 && s.expired != nil {
		s.expired.Add(float64(n))
	}
	return n, nil
}

func (s *Service) loadRequest(ctx context.Context, tx dispatchtx.Repository, id int64) (domain.DeliveryRequest, domain.Order, domain.Partner, error) {
	r, err := tx.LockRequest(ctx, id)
	if err != nil {
		return domain.DeliveryRequest{}, domain.Order{}, domain.Partner{}, err
	}
	if r == nil {
		return domain.DeliveryRequest{}, domain.Order{}, domain.Partner{}, errRequestNotFound
	}
	o, err := tx.GetOrder(ctx, r.OrderID)
	if err != nil {
		return domain.DeliveryRequest{}, domain.Order{}, domain.Partner{}, err
	}
	if o == nil {
		return domain.DeliveryRequest{}, domain.Order{}, domain.Partner{}, errOrderNotFound
	}
	p, err := tx.GetPartner(ctx, r.PartnerID)
	if err != nil {
		return domain.DeliveryRequest{}, domain.Order{}, domain.Partner{}, err
	}
	if p == nil {
		return domain.DeliveryRequest{}, domain.Order{}, domain.Partner{}, errPartnerNotFound
	}
	return *r, *o, *p, nil
}

// pendingAt reports why r cannot transition at now, if it cannot.
func pendingAt(r domain.DeliveryRequest, now time.Time) error {
	switch r.EffectiveStatus(now) {
	case domain.RequestPending:
		return nil
	case domain.RequestExpired:
		return apperr.ErrRequestExpired
	default:
		return apperr.ErrRequestNotPending
	}
}

func closed(r domain.DeliveryRequest, status domain.RequestStatus, response string, at time.Time) domain.DeliveryRequest {
	r.Status = status
	r.ResponseMessage = response
	r.RespondedAt = &at
	return r
}

func effective(reqs []domain.DeliveryRequest, now time.Time) []domain.DeliveryRequest {
	out := make([]domain.DeliveryRequest, len(reqs))
	for i, r := range reqs {
		r.Status = r.EffectiveStatus(now)
		out[i] = r
	}
	return out
}
