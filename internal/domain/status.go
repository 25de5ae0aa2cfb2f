package domain

type (
	// OrderStatus is the fulfillment status of an order, owned by the orders collaborator.
	OrderStatus string
	// RequestStatus is the lifecycle status of a delivery request.
	RequestStatus string
	// AssignmentStatus is the status of an order delivery assignment.
	AssignmentStatus string
)

// Order statuses relevant to dispatch
const (
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusProcessing     OrderStatus = "processing"
	OrderStatusReadyForPickup OrderStatus = "ready_for_pickup"
	OrderStatusPacking        OrderStatus = "packing"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// List of request statuses
const (
	RequestPending   RequestStatus = "pending"
	RequestAccepted  RequestStatus = "accepted"
	RequestRejected  RequestStatus = "rejected"
	RequestCancelled RequestStatus = "cancelled"
	RequestExpired   RequestStatus = "expired"
)

// List of assignment statuses
const (
	AssignmentAccepted  AssignmentStatus = "accepted"
	AssignmentCompleted AssignmentStatus = "completed"
	AssignmentCancelled AssignmentStatus = "cancelled"
)

var requestableStatuses = [...]OrderStatus{
	OrderStatusConfirmed, OrderStatusProcessing, OrderStatusPacking,
}

// ready_for_pickup shows up in discovery as an alias of processing.
var discoverableStatuses = [...]OrderStatus{
	OrderStatusConfirmed, OrderStatusProcessing, OrderStatusReadyForPickup, OrderStatusPacking,
}

var allowedRequestStatuses = [...]RequestStatus{
	RequestPending, RequestAccepted, RequestRejected, RequestCancelled, RequestExpired,
}

// DiscoverableStatuses returns the order statuses shown to partners looking for work.
func DiscoverableStatuses() []OrderStatus {
	out := make([]OrderStatus, len(discoverableStatuses))
	copy(out, discoverableStatuses[:])
	return out
}

// Discoverable reports whether an order in this status is offered to nearby partners.
func (s OrderStatus) Discoverable() bool {
	return containsStatus(discoverableStatuses[:], s)
}

// Requestable reports whether a request may be created or accepted for an order in this status.
func (s OrderStatus) Requestable() bool {
	return containsStatus(requestableStatuses[:], s)
}

func containsStatus(set []OrderStatus, s OrderStatus) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Valid checks if the RequestStatus is valid
func (s RequestStatus) Valid() bool {
	for _, v := range allowedRequestStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s RequestStatus) Terminal() bool {
	return s != RequestPending && s.Valid()
}
