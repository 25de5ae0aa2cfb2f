//go:generate mockgen -source=contracts.go -destination=orders_mocks_test.go -package=orders_test

package orders

import (
	"context"

	"service-dispatch/internal/domain"
)

// DispatchPort is the subset of dispatch operations driven by order lifecycle events.
type DispatchPort interface {
	NotifyNearbyPartners(ctx context.Context, orderID int64) (int, error)
	CloseAssignment(ctx context.Context, orderID int64, outcome domain.AssignmentStatus) (bool, error)
}

// OrderStore reads orders and stores geocoded delivery coordinates.
type OrderStore interface {
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	SetDeliveryLocation(ctx context.Context, id int64, loc domain.Location) (bool, error)
}

// Geocoder resolves a delivery address to a coordinate.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (domain.Location, error)
}
