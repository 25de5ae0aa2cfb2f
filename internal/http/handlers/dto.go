package handlers

import "time"

type createRequestRequest struct {
	OrderID     int64      `json:"order_id"`
	PartnerID   int64      `json:"partner_id"`
	RequestType string     `json:"request_type"`
	ProposedFee *float64   `json:"proposed_fee,omitempty"`
	Message     string     `json:"message,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type respondRequest struct {
	Message string `json:"message,omitempty"`
}

type requestDTO struct {
	ID              int64      `json:"id"`
	OrderID         int64      `json:"order_id"`
	PartnerID       int64      `json:"partner_id"`
	RequestType     string     `json:"request_type"`
	Status          string     `json:"status"`
	ProposedFee     float64    `json:"proposed_fee"`
	Message         string     `json:"message"`
	ResponseMessage string     `json:"response_message"`
	RequestedBy     int64      `json:"requested_by"`
	ExpiresAt       time.Time  `json:"expires_at"`
	RespondedAt     *time.Time `json:"responded_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

type assignmentDTO struct {
	ID              int64     `json:"id"`
	OrderID         int64     `json:"order_id"`
	PartnerID       int64     `json:"partner_id"`
	AssignmentType  string    `json:"assignment_type"`
	DeliveryFee     float64   `json:"delivery_fee"`
	Status          string    `json:"status"`
	PickupAddress   string    `json:"pickup_address"`
	DeliveryAddress string    `json:"delivery_address"`
	AssignedAt      time.Time `json:"assigned_at"`
}

type acceptResponse struct {
	Request    requestDTO    `json:"request"`
	Assignment assignmentDTO `json:"assignment"`
}

type requestListResponse struct {
	Requests []requestDTO `json:"requests"`
}

type nearbyOrderDTO struct {
	OrderID         int64     `json:"order_id"`
	StoreID         int64     `json:"store_id"`
	Status          string    `json:"status"`
	Latitude        float64   `json:"latitude"`
	Longitude       float64   `json:"longitude"`
	DistanceKm      float64   `json:"distance_km"`
	EstimatedFee    float64   `json:"estimated_fee"`
	TotalAmount     float64   `json:"total_amount"`
	PickupAddress   string    `json:"pickup_address"`
	DeliveryAddress string    `json:"delivery_address"`
	CreatedAt       time.Time `json:"created_at"`
}

type nearbyResponse struct {
	Orders []nearbyOrderDTO `json:"orders"`
	Reason string           `json:"reason,omitempty"`
}

type releaseCapacityResponse struct {
	PartnerID    int64 `json:"partner_id"`
	ActiveOrders int   `json:"active_orders"`
}
