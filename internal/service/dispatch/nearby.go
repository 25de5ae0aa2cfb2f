package dispatch

import (
	"context"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/geo"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/notify"
	"service-dispatch/internal/ports/dispatchtx"
	"service-dispatch/internal/service/eligibility"
	"service-dispatch/internal/service/fee"
	"service-dispatch/internal/service/proximity"
)

// FindNearbyOrders returns the dispatchable orders inside the partner's geofence, nearest
// first, each priced with the partner's rates. An ineligible partner gets no orders and a
// reason code instead of an error.
func (s *Service) FindNearbyOrders(ctx context.Context, caller domain.Caller, partnerID int64) (_ domain.NearbyResult, err error) {
	defer func() { s.observe("find_nearby", err) }()

	if partnerID <= 0 {
		return domain.NearbyResult{}, apperr.ErrInvalid.With("partner id is required")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := s.now()
	res := domain.NearbyResult{Orders: []domain.NearbyOrder{}}
	err = s.repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
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
		if reason := eligibility.Evaluate(*p); reason != "" {
			res.Reason = reason
			return nil
		}
		if p.Location == nil {
			return apperr.ErrLocationRequired
		}

		if err := s.sweep(ctx, tx, dispatchtx.ExpiryScope{PartnerID: p.ID}, now); err != nil {
			return err
		}
		orders, err := tx.ListDispatchableOrders(ctx, dispatchtx.OrderQuery{
			Box:              geo.BoundingBox(p.Location.Lat, p.Location.Lng, p.ServiceRadiusKm),
			Statuses:         domain.DiscoverableStatuses(),
			ExcludePartnerID: p.ID,
		})
		if err != nil {
			return err
		}

		for _, c := range proximity.Rank(*p.Location, p.ServiceRadiusKm, orders, s.cfg.NearbyLimit) {
			estimated, err := fee.Compute(p.Rates, c.DistanceKm, c.Order.TotalAmount)
			if err != nil {
				return err
			}
			res.Orders = append(res.Orders, domain.NearbyOrder{
				Order:        c.Order,
				DistanceKm:   c.DisplayDistance(),
				EstimatedFee: estimated,
			})
		}
		return nil
	})
	if err != nil {
		return domain.NearbyResult{}, err
	}
	return res, nil
}

// NotifyNearbyPartners sends order_nearby to every eligible partner whose geofence contains the
// order's delivery point. Orders that are not dispatchable, already assigned or not yet
// geocoded are skipped. It returns the number of partners notified.
func (s *Service) NotifyNearbyPartners(ctx context.Context, orderID int64) (int, error) {
	if orderID <= 0 {
		return 0, apperr.ErrInvalid.With("order id is required")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := s.now()
	var events []notify.Event
	err := s.repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		o, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if o == nil {
			return errOrderNotFound
		}
		if !o.Status.Discoverable() || o.Assigned() || o.DeliveryLocation == nil {
			return nil
		}

		widest, err := tx.WidestServiceRadiusKm(ctx)
		if err != nil || widest <= 0 {
			return err
		}
		loc := *o.DeliveryLocation
		partners, err := tx.ListEligiblePartners(ctx, geo.BoundingBox(loc.Lat, loc.Lng, widest))
		if err != nil {
			return err
		}
		for _, p := range partners {
			if p.Location == nil || eligibility.Check(p) != nil {
				continue
			}
			d := geo.HaversineKm(p.Location.Lat, p.Location.Lng, loc.Lat, loc.Lng)
			if d > p.ServiceRadiusKm {
				continue
			}
			estimated, err := fee.Compute(p.Rates, d, o.TotalAmount)
			if err != nil {
				s.logger.Warn("skip partner with invalid pricing",
					logx.Int64("partner_id", p.ID),
					logx.Int64("order_id", o.ID),
					logx.Any("err", err),
				)
				continue
			}
			ev := notify.New(notify.OrderNearby, o.ID, p.ID, now)
			ev.DistanceKm = geo.Round2(d)
			ev.Fee = estimated
			events = append(events, ev)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.notify(ctx, events...)
	if len(events) > 0 {
		s.logger.Info("nearby partners notified",
			logx.String("event", "order_nearby"),
			logx.Int64("order_id", orderID),
			logx.Int("partners", len(events)),
		)
	}
	return len(events), nil
}
