package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/ports/dispatchtx"
)

const listRequestsLimit = 500

const requestColumns = `
    id, order_id, delivery_partner_id, request_type, status, proposed_fee::float8,
    message, response_message, requested_by, expires_at, responded_at, created_at`

func scanRequest(row pgx.Row) (domain.DeliveryRequest, error) {
	var r domain.DeliveryRequest
	err := row.Scan(&r.ID, &r.OrderID, &r.PartnerID, &r.Type, &r.Status, &r.ProposedFee,
		&r.Message, &r.ResponseMessage, &r.RequestedBy, &r.ExpiresAt, &r.RespondedAt, &r.CreatedAt)
	return r, err
}

func collectRequests(rows pgx.Rows, op string) ([]domain.DeliveryRequest, error) {
	defer rows.Close()

	var out []domain.DeliveryRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, mapError(op, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}
	return out, nil
}

func (r *TxRepo) getRequest(ctx context.Context, id int64, lock bool) (*domain.DeliveryRequest, error) {
	sql := `SELECT` + requestColumns + ` FROM delivery_requests WHERE id = $1`
	if lock {
		sql += ` FOR UPDATE`
	}
	req, err := scanRequest(r.q.QueryRow(ctx, sql, id))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, mapError(fmt.Sprintf("get request %d", id), err)
	}
	return &req, nil
}

// GetRequest - get delivery request by ID.
func (r *TxRepo) GetRequest(ctx context.Context, id int64) (*domain.DeliveryRequest, error) {
	return r.getRequest(ctx, id, false)
}

// LockRequest - get delivery request by ID for update.
func (r *TxRepo) LockRequest(ctx context.Context, id int64) (*domain.DeliveryRequest, error) {
	return r.getRequest(ctx, id, true)
}

// ListRequests - requests of an order and/or a partner, newest first.
func (r *TxRepo) ListRequests(ctx context.Context, f dispatchtx.RequestFilter) ([]domain.DeliveryRequest, error) {
	rows, err := r.q.Query(ctx, `SELECT`+requestColumns+`
        FROM delivery_requests
        WHERE ($1::bigint = 0 OR order_id = $1)
          AND ($2::bigint = 0 OR delivery_partner_id = $2)
        ORDER BY created_at DESC, id DESC
        LIMIT $3
    `, f.OrderID, f.PartnerID, listRequestsLimit)
	if err != nil {
		return nil, mapError("list requests", err)
	}
	return collectRequests(rows, "list requests")
}

// HasPendingRequest - whether a stored pending request exists for the pair.
func (r *TxRepo) HasPendingRequest(ctx context.Context, orderID, partnerID int64) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM delivery_requests
            WHERE order_id = $1 AND delivery_partner_id = $2 AND status = 'pending'
        )
    `, orderID, partnerID).Scan(&exists)
	if err != nil {
		return false, mapError("check pending request", err)
	}
	return exists, nil
}

// InsertRequest - insert a new delivery request.
func (r *TxRepo) InsertRequest(ctx context.Context, req *domain.DeliveryRequest) error {
	err := r.q.QueryRow(ctx, `
        INSERT INTO delivery_requests
            (order_id, delivery_partner_id, request_type, status, proposed_fee,
             message, requested_by, expires_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id
    `, req.OrderID, req.PartnerID, string(req.Type), string(req.Status), req.ProposedFee,
		req.Message, req.RequestedBy, req.ExpiresAt, req.CreatedAt).Scan(&req.ID)
	if err != nil {
		return mapError("insert request", err)
	}
	return nil
}

// UpdateRequestStatus - move a request to a terminal status.
func (r *TxRepo) UpdateRequestStatus(ctx context.Context, id int64, status domain.RequestStatus, response string, at time.Time) error {
	ct, err := r.q.Exec(ctx, `
        UPDATE delivery_requests
        SET status = $2, response_message = $3, responded_at = $4
        WHERE id = $1
    `, id, string(status), response, at)
	if err != nil {
		return mapError(fmt.Sprintf("update request %d", id), err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.ErrNotFound.With(fmt.Sprintf("request %d not found", id))
	}
	return nil
}

// RejectPendingSiblings - reject every other pending request of the order and return them.
func (r *TxRepo) RejectPendingSiblings(ctx context.Context, orderID, acceptedID int64, message string, at time.Time) ([]domain.DeliveryRequest, error) {
	rows, err := r.q.Query(ctx, `
        UPDATE delivery_requests
        SET status = 'rejected', response_message = $3, responded_at = $4
        WHERE order_id = $1 AND id <> $2 AND status = 'pending'
        RETURNING`+requestColumns, orderID, acceptedID, message, at)
	if err != nil {
		return nil, mapError("reject sibling requests", err)
	}
	return collectRequests(rows, "reject sibling requests")
}

// ExpireStale - mark pending requests past their expiry as expired.
func (r *TxRepo) ExpireStale(ctx context.Context, scope dispatchtx.ExpiryScope, now time.Time) (int64, error) {
	ct, err := r.q.Exec(ctx, `
        UPDATE delivery_requests
        SET status = 'expired'
        WHERE status = 'pending'
          AND expires_at <= $1
          AND ($2::bigint = 0 OR order_id = $2)
          AND ($3::bigint = 0 OR delivery_partner_id = $3)
    `, now, scope.OrderID, scope.PartnerID)
	if err != nil {
		return 0, mapError("expire stale requests", err)
	}
	return ct.RowsAffected(), nil
}
