package dispatch

import (
	"context"
	"fmt"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/notify"
	"service-dispatch/internal/ports/dispatchtx"
	"service-dispatch/internal/service/eligibility"
)

// AcceptRequest accepts a pending request on behalf of its counterparty and binds the partner
// to the order. Every check and write happens in one transaction holding row locks on the
// order, the request and the partner, taken in that order.
func (s *Service) AcceptRequest(ctx context.Context, caller domain.Caller, requestID int64, message string) (_ domain.AcceptResult, err error) {
	defer func() { s.observe("accept_request", err) }()

	if requestID <= 0 {
		return domain.AcceptResult{}, apperr.ErrInvalid.With("request id is required")
	}
	if err := validMessage(message); err != nil {
		return domain.AcceptResult{}, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := s.now()
	var res domain.AcceptResult
	err = s.repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		probe, err := tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if probe == nil {
			return errRequestNotFound
		}

		order, err := tx.LockOrder(ctx, probe.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return errOrderNotFound
		}
		req, err := tx.LockRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return errRequestNotFound
		}
		partner, err := tx.LockPartner(ctx, req.PartnerID)
		if err != nil {
			return err
		}
		if partner == nil {
			return errPartnerNotFound
		}

		if !req.Type.CanRespond(caller, *order, *partner) {
			return apperr.ErrPermissionDenied
		}
		if order.Assigned() {
			return apperr.ErrOrderAlreadyAssigned
		}
		if err := pendingAt(*req, now); err != nil {
			return err
		}
		if !order.Status.Requestable() {
			return apperr.ErrOrderNotDispatchable
		}
		if err := eligibility.Check(*partner); err != nil {
			return err
		}

		if err := tx.UpdateRequestStatus(ctx, req.ID, domain.RequestAccepted, message, now); err != nil {
			return err
		}
		a := domain.Assignment{
			OrderID:         order.ID,
			PartnerID:       partner.ID,
			Type:            req.Type,
			DeliveryFee:     req.ProposedFee,
			Status:          domain.AssignmentAccepted,
			PickupAddress:   order.PickupAddress,
			DeliveryAddress: order.DeliveryAddress,
			AssignedAt:      now,
		}
		if err := tx.InsertAssignment(ctx, &a); err != nil {
			return err
		}
		if err := tx.SetOrderPartner(ctx, order.ID, partner.ID); err != nil {
			return err
		}
		if err := tx.IncrementActiveOrders(ctx, partner.ID); err != nil {
			return err
		}
		rejected, err := tx.RejectPendingSiblings(ctx, order.ID, req.ID, SiblingRejectMessage, now)
		if err != nil {
			return err
		}
		if err := tx.AppendHistory(ctx, domain.HistoryEntry{
			OrderID:   order.ID,
			Event:     domain.HistoryPartnerAssigned,
			Note:      fmt.Sprintf("partner %d assigned via request %d", partner.ID, req.ID),
			CreatedAt: now,
		}); err != nil {
			return err
		}

		res = domain.AcceptResult{
			Request:    closed(*req, domain.RequestAccepted, message, now),
			Assignment: a,
			Rejected:   rejected,
		}
		return nil
	})
	if err != nil {
		return domain.AcceptResult{}, err
	}

	s.logger.Info("partner assigned",
		logx.String("event", "partner_assigned"),
		logx.Int64("request_id", res.Request.ID),
		logx.Int64("order_id", res.Assignment.OrderID),
		logx.Int64("partner_id", res.Assignment.PartnerID),
		logx.Int64("assignment_id", res.Assignment.ID),
		logx.Float64("delivery_fee", res.Assignment.DeliveryFee),
		logx.Int("siblings_rejected", len(res.Rejected)),
	)

	accepted := notify.New(notify.RequestAccepted, res.Assignment.OrderID, res.Assignment.PartnerID, now)
	accepted.RequestID = res.Request.ID
	accepted.Fee = res.Assignment.DeliveryFee
	accepted.Message = message
	events := []notify.Event{accepted}
	for _, r := range res.Rejected {
		ev := notify.New(notify.RequestRejected, r.OrderID, r.PartnerID, now)
		ev.RequestID = r.ID
		ev.Message = SiblingRejectMessage
		events = append(events, ev)
	}
	s.notify(ctx, events...)

	return res, nil
}
