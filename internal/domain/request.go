package domain

import "time"

// RequestType tells which side initiated a delivery request.
type RequestType string

// List of request types
const (
	PartnerToSeller RequestType = "partner_to_seller"
	SellerToPartner RequestType = "seller_to_partner"
)

// Valid checks if the RequestType is known.
func (t RequestType) Valid() bool {
	return t == PartnerToSeller || t == SellerToPartner
}

// CanInitiate reports whether the caller is the side allowed to create a request of this type:
// the partner's owner for partner_to_seller, the store owner for seller_to_partner.
func (t RequestType) CanInitiate(c Caller, o Order, p Partner) bool {
	switch t {
	case PartnerToSeller:
		return c.ID == p.UserID
	case SellerToPartner:
		return c.ID == o.SellerID
	default:
		return false
	}
}

// CanRespond reports whether the caller is the counterparty who may accept or reject.
func (t RequestType) CanRespond(c Caller, o Order, p Partner) bool {
	switch t {
	case PartnerToSeller:
		return c.ID == o.SellerID
	case SellerToPartner:
		return c.ID == p.UserID
	default:
		return false
	}
}

// DeliveryRequest is a proposal to bind one partner to one order.
type DeliveryRequest struct {
	ID              int64
	OrderID         int64
	PartnerID       int64
	Type            RequestType
	Status          RequestStatus
	ProposedFee     float64
	Message         string
	ResponseMessage string
	RequestedBy     int64
	ExpiresAt       time.Time
	RespondedAt     *time.Time
	CreatedAt       time.Time
}

// EffectiveStatus is the status as observed at now: a stored pending request past its
// expiry is reported as expired even before a sweep persists it.
func (r DeliveryRequest) EffectiveStatus(now time.Time) RequestStatus {
	if r.Status == RequestPending && !now.Before(r.ExpiresAt) {
		return RequestExpired
	}
	return r.Status
}

// Assignment is the durable, exclusive binding of a partner to an order.
type Assignment struct {
	ID              int64
	OrderID         int64
	PartnerID       int64
	Type            RequestType
	DeliveryFee     float64
	Status          AssignmentStatus
	PickupAddress   string
	DeliveryAddress string
	AssignedAt      time.Time
}

// AcceptResult is returned by a successful acceptance.
type AcceptResult struct {
	Request    DeliveryRequest
	Assignment Assignment
	// Rejected holds the sibling requests closed by the acceptance.
	Rejected []DeliveryRequest
}

// NearbyOrder is one discovery result.
type NearbyOrder struct {
	Order        Order
	DistanceKm   float64
	EstimatedFee float64
}

// NearbyResult is a point-in-time discovery snapshot. Reason is set when the partner is
// not eligible to see orders; Orders is empty in that case.
type NearbyResult struct {
	Orders []NearbyOrder
	Reason string
}
