package domain

import "time"

// Order is the dispatch-relevant projection of an order owned by the orders collaborator.
type Order struct {
	ID                int64
	StoreID           int64
	SellerID          int64
	Status            OrderStatus
	DeliveryLocation  *Location
	DeliveryPartnerID *int64
	TotalAmount       float64
	PickupAddress     string
	DeliveryAddress   string
	CreatedAt         time.Time
}

// Assigned reports whether a partner is already attached to the order.
func (o Order) Assigned() bool {
	return o.DeliveryPartnerID != nil
}

// HistoryEntry is an audit record appended to the order history.
type HistoryEntry struct {
	OrderID   int64
	Event     string
	Note      string
	CreatedAt time.Time
}

// History events written by dispatch
const (
	HistoryPartnerAssigned = "partner_assigned"
	HistoryPartnerReleased = "partner_released"
)
