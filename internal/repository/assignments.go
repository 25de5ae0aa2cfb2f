package repository

import (
	"context"
	"fmt"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
)

// InsertAssignment - insert the order's assignment. A second assignment for the same order
// violates the unique constraint and surfaces as ErrOrderAlreadyAssigned.
func (r *TxRepo) InsertAssignment(ctx context.Context, a *domain.Assignment) error {
	err := r.q.QueryRow(ctx, `
        INSERT INTO order_delivery_assignments
            (order_id, delivery_partner_id, assignment_type, delivery_fee, status,
             pickup_address, delivery_address, assigned_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id
    `, a.OrderID, a.PartnerID, string(a.Type), a.DeliveryFee, string(a.Status),
		a.PickupAddress, a.DeliveryAddress, a.AssignedAt).Scan(&a.ID)
	if err != nil {
		return mapError("insert assignment", err)
	}
	return nil
}

// LockAssignment - get the order's assignment for update.
func (r *TxRepo) LockAssignment(ctx context.Context, orderID int64) (*domain.Assignment, error) {
	var a domain.Assignment
	err := r.q.QueryRow(ctx, `
        SELECT id, order_id, delivery_partner_id, assignment_type, delivery_fee::float8, status,
               pickup_address, delivery_address, assigned_at
        FROM order_delivery_assignments
        WHERE order_id = $1
        FOR UPDATE
    `, orderID).Scan(&a.ID, &a.OrderID, &a.PartnerID, &a.Type, &a.DeliveryFee, &a.Status,
		&a.PickupAddress, &a.DeliveryAddress, &a.AssignedAt)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, mapError(fmt.Sprintf("get assignment of order %d", orderID), err)
	}
	return &a, nil
}

// UpdateAssignmentStatus - set the assignment status.
func (r *TxRepo) UpdateAssignmentStatus(ctx context.Context, id int64, status domain.AssignmentStatus) error {
	ct, err := r.q.Exec(ctx, `
        UPDATE order_delivery_assignments
        SET status = $2, updated_at = now()
        WHERE id = $1
    `, id, string(status))
	if err != nil {
		return mapError(fmt.Sprintf("update assignment %d", id), err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.ErrNotFound.With(fmt.Sprintf("assignment %d not found", id))
	}
	return nil
}
