package dispatch

import (
	"context"
	"fmt"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/ports/dispatchtx"
)

// ReleaseCapacity frees one active-order slot of a partner. The counter never drops below zero.
// Only system callers (the completion and cancellation flows) may release capacity.
func (s *Service) ReleaseCapacity(ctx context.Context, caller domain.Caller, partnerID int64) (_ int, err error) {
	defer func() { s.observe("release_capacity", err) }()

	if partnerID <= 0 {
		return 0, apperr.ErrInvalid.With("partner id is required")
	}
	if !caller.HasRole(domain.RoleSystem) {
		return 0, apperr.ErrPermissionDenied
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var active int
	err = s.repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		p, err := tx.LockPartner(ctx, partnerID)
		if err != nil {
			return err
		}
		if p == nil {
			return errPartnerNotFound
		}
		active, err = tx.DecrementActiveOrders(ctx, partnerID)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("partner capacity released",
		logx.String("event", "capacity_released"),
		logx.Int64("partner_id", partnerID),
		logx.Int("active_orders", active),
	)
	return active, nil
}

// CloseAssignment finishes the assignment of an order with outcome (completed or cancelled) and
// releases the partner's slot in the same transaction. It reports false when the assignment
// was already closed.
func (s *Service) CloseAssignment(ctx context.Context, orderID int64, outcome domain.AssignmentStatus) (_ bool, err error) {
	defer func() { s.observe("close_assignment", err) }()

	if orderID <= 0 {
		return false, apperr.ErrInvalid.With("order id is required")
	}
	if outcome != domain.AssignmentCompleted && outcome != domain.AssignmentCancelled {
		return false, apperr.ErrInvalid.With(fmt.Sprintf("unsupported assignment outcome %q", outcome))
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := s.now()
	var a domain.Assignment
	changed := false
	err = s.repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		order, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return errOrderNotFound
		}
		cur, err := tx.LockAssignment(ctx, orderID)
		if err != nil {
			return err
		}
		if cur == nil {
			return errAssignmentNotFound
		}
		a = *cur
		if a.Status != domain.AssignmentAccepted {
			return nil
		}
		if _, err := tx.LockPartner(ctx, a.PartnerID); err != nil {
			return err
		}
		if err := tx.UpdateAssignmentStatus(ctx, a.ID, outcome); err != nil {
			return err
		}
		if _, err := tx.DecrementActiveOrders(ctx, a.PartnerID); err != nil {
			return err
		}
		if err := tx.AppendHistory(ctx, domain.HistoryEntry{
			OrderID:   orderID,
			Event:     domain.HistoryPartnerReleased,
			Note:      fmt.Sprintf("partner %d released, assignment %s", a.PartnerID, outcome),
			CreatedAt: now,
		}); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if changed {
		s.logger.Info("assignment closed",
			logx.String("event", "assignment_closed"),
			logx.Int64("order_id", orderID),
			logx.Int64("partner_id", a.PartnerID),
			logx.String("outcome", string(outcome)),
		)
	}
	return changed, nil
}
