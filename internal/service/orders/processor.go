// Package orders reacts to order lifecycle events from the orders collaborator.
package orders

import (
	"context"
	"errors"
	"strings"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
)

// Processor processes order events
type Processor struct {
	dispatch DispatchPort
	orders   OrderStore
	geocoder Geocoder
	logger   logx.Logger
	factory  *actionFactory
}

// NewProcessor creates a new orders.Processor. geocoder may be nil, in which case orders
// without coordinates are left for a later event.
func NewProcessor(dispatch DispatchPort, orders OrderStore, geocoder Geocoder, logger logx.Logger) *Processor {
	if logger == nil {
		logger = logx.Nop()
	}
	p := &Processor{
		dispatch: dispatch,
		orders:   orders,
		geocoder: geocoder,
		logger:   logger,
	}
	p.factory = newActionFactory(p.onDispatchable, p.onCompleted, p.onCancelled)
	return p
}

// Handle processes a single order event. Unknown statuses are ignored.
func (p *Processor) Handle(ctx context.Context, e Event) error {
	if p.factory == nil {
		return nil
	}
	fn, ok := p.factory.get(e.Status)
	if !ok {
		return nil
	}
	return fn(ctx, e)
}

func (p *Processor) onDispatchable(ctx context.Context, e Event) error {
	o, err := p.orders.GetOrder(ctx, e.OrderID)
	if err != nil {
		return err
	}
	if o == nil {
		p.logger.Warn("order event for unknown order", logx.Int64("order_id", e.OrderID))
		return nil
	}

	if o.DeliveryLocation == nil {
		if err := p.locate(ctx, *o); err != nil {
			return err
		}
	}

	sent, err := p.dispatch.NotifyNearbyPartners(ctx, e.OrderID)
	if err != nil {
		return err
	}
	p.logger.Info("nearby partners notified",
		logx.String("event", "order_nearby"),
		logx.Int64("order_id", e.OrderID),
		logx.Int("partners", sent),
	)
	return nil
}

func (p *Processor) locate(ctx context.Context, o domain.Order) error {
	if p.geocoder == nil || strings.TrimSpace(o.DeliveryAddress) == "" {
		return nil
	}
	loc, err := p.geocoder.Geocode(ctx, o.DeliveryAddress)
	if err != nil {
		return err
	}
	if _, err := p.orders.SetDeliveryLocation(ctx, o.ID, loc); err != nil {
		return err
	}
	p.logger.Info("order geocoded",
		logx.Int64("order_id", o.ID),
		logx.Float64("lat", loc.Lat),
		logx.Float64("lng", loc.Lng),
	)
	return nil
}

func (p *Processor) onCompleted(ctx context.Context, e Event) error {
	return p.close(ctx, e, domain.AssignmentCompleted)
}

func (p *Processor) onCancelled(ctx context.Context, e Event) error {
	return p.close(ctx, e, domain.AssignmentCancelled)
}

func (p *Processor) close(ctx context.Context, e Event, outcome domain.AssignmentStatus) error {
	_, err := p.dispatch.CloseAssignment(ctx, e.OrderID, outcome)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	return err
}
