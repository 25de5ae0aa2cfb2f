package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/geo"
)

const partnerColumns = `
    id, user_id, name, latitude, longitude, service_radius_km,
    pricing_model, base_charge::float8, per_km_charge::float8, percentage_charge::float8,
    max_daily_capacity, current_active_orders, is_verified, is_active, rating::float8`

func scanPartner(row pgx.Row) (domain.Partner, error) {
	var (
		p        domain.Partner
		lat, lng *float64
	)
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &lat, &lng, &p.ServiceRadiusKm,
		&p.Rates.Model, &p.Rates.BaseCharge, &p.Rates.PerKmCharge, &p.Rates.PercentageCharge,
		&p.MaxDailyCapacity, &p.CurrentActiveOrders, &p.IsVerified, &p.IsActive, &p.Rating)
	if err != nil {
		return domain.Partner{}, err
	}
	if lat != nil && lng != nil {
		p.Location = &domain.Location{Lat: *lat, Lng: *lng}
	}
	return p, nil
}

func (r *TxRepo) getPartner(ctx context.Context, id int64, lock bool) (*domain.Partner, error) {
	sql := `SELECT` + partnerColumns + ` FROM delivery_partners WHERE id = $1`
	if lock {
		sql += ` FOR UPDATE`
	}
	p, err := scanPartner(r.q.QueryRow(ctx, sql, id))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, mapError(fmt.Sprintf("get partner %d", id), err)
	}
	return &p, nil
}

// GetPartner - get partner by ID.
func (r *TxRepo) GetPartner(ctx context.Context, id int64) (*domain.Partner, error) {
	return r.getPartner(ctx, id, false)
}

// LockPartner - get partner by ID for update.
func (r *TxRepo) LockPartner(ctx context.Context, id int64) (*domain.Partner, error) {
	return r.getPartner(ctx, id, true)
}

// ListEligiblePartners - verified, active partners with spare capacity located inside box.
func (r *TxRepo) ListEligiblePartners(ctx context.Context, box geo.Box) ([]domain.Partner, error) {
	rows, err := r.q.Query(ctx, `SELECT`+partnerColumns+`
        FROM delivery_partners
        WHERE is_verified AND is_active
          AND current_active_orders < max_daily_capacity
          AND latitude BETWEEN $1 AND $2
          AND longitude BETWEEN $3 AND $4
        ORDER BY id
    `, box.MinLat, box.MaxLat, box.MinLng, box.MaxLng)
	if err != nil {
		return nil, mapError("list eligible partners", err)
	}
	defer rows.Close()

	var out []domain.Partner
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, mapError("scan partner", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list eligible partners", err)
	}
	return out, nil
}

// WidestServiceRadiusKm - largest service radius among eligible partners, 0 when there are none.
func (r *TxRepo) WidestServiceRadiusKm(ctx context.Context) (float64, error) {
	var widest float64
	err := r.q.QueryRow(ctx, `
        SELECT COALESCE(MAX(service_radius_km), 0)::float8
        FROM delivery_partners
        WHERE is_verified AND is_active
          AND current_active_orders < max_daily_capacity
          AND latitude IS NOT NULL AND longitude IS NOT NULL
    `).Scan(&widest)
	if err != nil {
		return 0, mapError("widest service radius", err)
	}
	return widest, nil
}

// IncrementActiveOrders - take one capacity slot; fails when the partner is full.
func (r *TxRepo) IncrementActiveOrders(ctx context.Context, partnerID int64) error {
	ct, err := r.q.Exec(ctx, `
        UPDATE delivery_partners
        SET current_active_orders = current_active_orders + 1, updated_at = now()
        WHERE id = $1 AND current_active_orders < max_daily_capacity
    `, partnerID)
	if err != nil {
		return mapError(fmt.Sprintf("increment active orders of partner %d", partnerID), err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.ErrPartnerAtCapacity
	}
	return nil
}

// DecrementActiveOrders - release one capacity slot, never below zero. Returns the new count.
func (r *TxRepo) DecrementActiveOrders(ctx context.Context, partnerID int64) (int, error) {
	var active int
	err := r.q.QueryRow(ctx, `
        UPDATE delivery_partners
        SET current_active_orders = GREATEST(current_active_orders - 1, 0), updated_at = now()
        WHERE id = $1
        RETURNING current_active_orders
    `, partnerID).Scan(&active)
	if err != nil {
		if IsNotFound(err) {
			return 0, apperr.ErrNotFound.With(fmt.Sprintf("partner %d not found", partnerID))
		}
		return 0, mapError(fmt.Sprintf("decrement active orders of partner %d", partnerID), err)
	}
	return active, nil
}
