package dispatchtx

import (
	"context"
	"time"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/geo"
)

// ExpiryScope narrows an expiry sweep. Zero fields match everything.
type ExpiryScope struct {
	OrderID   int64
	PartnerID int64
}

// RequestFilter selects requests for listing. At least one field is set.
type RequestFilter struct {
	OrderID   int64
	PartnerID int64
}

// OrderQuery selects dispatchable orders inside a bounding box.
type OrderQuery struct {
	Box      geo.Box
	Statuses []domain.OrderStatus
	// ExcludePartnerID drops orders that already have a pending request from this partner.
	ExcludePartnerID int64
}

// Repository is the dispatch store seen from inside a transaction.
// Get* methods return nil, nil when the row does not exist; Lock* methods additionally
// hold a row lock until the transaction ends.
type Repository interface {
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	LockOrder(ctx context.Context, id int64) (*domain.Order, error)
	ListDispatchableOrders(ctx context.Context, q OrderQuery) ([]domain.Order, error)
	SetOrderPartner(ctx context.Context, orderID, partnerID int64) error
	AppendHistory(ctx context.Context, e domain.HistoryEntry) error

	GetPartner(ctx context.Context, id int64) (*domain.Partner, error)
	LockPartner(ctx context.Context, id int64) (*domain.Partner, error)
	ListEligiblePartners(ctx context.Context, box geo.Box) ([]domain.Partner, error)
	WidestServiceRadiusKm(ctx context.Context) (float64, error)
	IncrementActiveOrders(ctx context.Context, partnerID int64) error
	DecrementActiveOrders(ctx context.Context, partnerID int64) (int, error)

	GetRequest(ctx context.Context, id int64) (*domain.DeliveryRequest, error)
	LockRequest(ctx context.Context, id int64) (*domain.DeliveryRequest, error)
	ListRequests(ctx context.Context, f RequestFilter) ([]domain.DeliveryRequest, error)
	HasPendingRequest(ctx context.Context, orderID, partnerID int64) (bool, error)
	InsertRequest(ctx context.Context, r *domain.DeliveryRequest) error
	UpdateRequestStatus(ctx context.Context, id int64, status domain.RequestStatus, response string, at time.Time) error
	RejectPendingSiblings(ctx context.Context, orderID, acceptedID int64, message string, at time.Time) ([]domain.DeliveryRequest, error)
	ExpireStale(ctx context.Context, scope ExpiryScope, now time.Time) (int64, error)

	InsertAssignment(ctx context.Context, a *domain.Assignment) error
	LockAssignment(ctx context.Context, orderID int64) (*domain.Assignment, error)
	UpdateAssignmentStatus(ctx context.Context, id int64, status domain.AssignmentStatus) error
}

// Runner is a transaction runner
type Runner interface {
	WithTx(ctx context.Context, fn func(tx Repository) error) error
}
