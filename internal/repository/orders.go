package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/ports/dispatchtx"
)

const orderColumns = `
    o.id, o.store_id, s.owner_id, o.status,
    o.delivery_latitude, o.delivery_longitude, o.delivery_partner_id,
    o.total_amount::float8, o.pickup_address, o.delivery_address, o.created_at`

func scanOrder(row pgx.Row) (domain.Order, error) {
	var (
		o        domain.Order
		lat, lng *float64
	)
	err := row.Scan(&o.ID, &o.StoreID, &o.SellerID, &o.Status,
		&lat, &lng, &o.DeliveryPartnerID,
		&o.TotalAmount, &o.PickupAddress, &o.DeliveryAddress, &o.CreatedAt)
	if err != nil {
		return domain.Order{}, err
	}
	if lat != nil && lng != nil {
		o.DeliveryLocation = &domain.Location{Lat: *lat, Lng: *lng}
	}
	return o, nil
}

func getOrder(ctx context.Context, q querier, id int64, lock bool) (*domain.Order, error) {
	sql := `SELECT` + orderColumns + `
        FROM orders o
        JOIN stores s ON s.id = o.store_id
        WHERE o.id = $1`
	if lock {
		sql += ` FOR UPDATE OF o`
	}
	o, err := scanOrder(q.QueryRow(ctx, sql, id))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, mapError(fmt.Sprintf("get order %d", id), err)
	}
	return &o, nil
}

// GetOrder - get order by ID.
func (r *TxRepo) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	return getOrder(ctx, r.q, id, false)
}

// LockOrder - get order by ID for update.
func (r *TxRepo) LockOrder(ctx context.Context, id int64) (*domain.Order, error) {
	return getOrder(ctx, r.q, id, true)
}

// ListDispatchableOrders - unassigned orders with coordinates inside the query box.
func (r *TxRepo) ListDispatchableOrders(ctx context.Context, q dispatchtx.OrderQuery) ([]domain.Order, error) {
	statuses := make([]string, 0, len(q.Statuses))
	for _, s := range q.Statuses {
		statuses = append(statuses, string(s))
	}
	rows, err := r.q.Query(ctx, `SELECT`+orderColumns+`
        FROM orders o
        JOIN stores s ON s.id = o.store_id
        WHERE o.status = ANY($1)
          AND o.delivery_partner_id IS NULL
          AND o.delivery_latitude BETWEEN $2 AND $3
          AND o.delivery_longitude BETWEEN $4 AND $5
          AND NOT EXISTS (SELECT 1 FROM order_delivery_assignments a WHERE a.order_id = o.id)
          AND ($6::bigint = 0 OR NOT EXISTS (
              SELECT 1 FROM delivery_requests dr
              WHERE dr.order_id = o.id
                AND dr.delivery_partner_id = $6
                AND dr.status = 'pending'
          ))
        ORDER BY o.created_at, o.id
    `, statuses, q.Box.MinLat, q.Box.MaxLat, q.Box.MinLng, q.Box.MaxLng, q.ExcludePartnerID)
	if err != nil {
		return nil, mapError("list dispatchable orders", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, mapError("scan order", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list dispatchable orders", err)
	}
	return out, nil
}

// SetOrderPartner - attach the partner to an unassigned order. Order status is left alone.
func (r *TxRepo) SetOrderPartner(ctx context.Context, orderID, partnerID int64) error {
	ct, err := r.q.Exec(ctx, `
        UPDATE orders
        SET delivery_partner_id = $2, updated_at = now()
        WHERE id = $1 AND delivery_partner_id IS NULL
    `, orderID, partnerID)
	if err != nil {
		return mapError(fmt.Sprintf("set partner of order %d", orderID), err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.ErrOrderAlreadyAssigned
	}
	return nil
}

// AppendHistory - append an order history entry.
func (r *TxRepo) AppendHistory(ctx context.Context, e domain.HistoryEntry) error {
	_, err := r.q.Exec(ctx, `
        INSERT INTO order_history (order_id, event, note, created_at)
        VALUES ($1, $2, $3, $4)
    `, e.OrderID, e.Event, e.Note, e.CreatedAt)
	if err != nil {
		return mapError("append order history", err)
	}
	return nil
}

// OrderRepo reads and geocodes orders outside dispatch transactions.
type OrderRepo struct {
	db *pgxpool.Pool
}

// NewOrderRepo creates a new OrderRepo.
func NewOrderRepo(db *pgxpool.Pool) *OrderRepo {
	return &OrderRepo{db: db}
}

// GetOrder - get order by ID; nil when missing.
func (r *OrderRepo) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	return getOrder(ctx, r.db, id, false)
}

// SetDeliveryLocation stores geocoded coordinates unless the order already has them.
// It reports whether the row changed.
func (r *OrderRepo) SetDeliveryLocation(ctx context.Context, id int64, loc domain.Location) (bool, error) {
	ct, err := r.db.Exec(ctx, `
        UPDATE orders
        SET delivery_latitude = $2, delivery_longitude = $3, updated_at = now()
        WHERE id = $1 AND (delivery_latitude IS NULL OR delivery_longitude IS NULL)
    `, id, loc.Lat, loc.Lng)
	if err != nil {
		return false, mapError(fmt.Sprintf("set location of order %d", id), err)
	}
	return ct.RowsAffected() > 0, nil
}
