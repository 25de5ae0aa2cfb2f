package handlers

import (
	"context"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/service/dispatch"
)

type dispatchUsecase interface {
	FindNearbyOrders(ctx context.Context, caller domain.Caller, partnerID int64) (domain.NearbyResult, error)
	CreateRequest(ctx context.Context, caller domain.Caller, in dispatch.CreateRequestInput) (domain.DeliveryRequest, error)
	AcceptRequest(ctx context.Context, caller domain.Caller, requestID int64, message string) (domain.AcceptResult, error)
	RejectRequest(ctx context.Context, caller domain.Caller, requestID int64, message string) (domain.DeliveryRequest, error)
	CancelRequest(ctx context.Context, caller domain.Caller, requestID int64) (domain.DeliveryRequest, error)
	GetRequest(ctx context.Context, caller domain.Caller, requestID int64) (domain.DeliveryRequest, error)
	ListPartnerRequests(ctx context.Context, caller domain.Caller, partnerID int64) ([]domain.DeliveryRequest, error)
	ListOrderRequests(ctx context.Context, caller domain.Caller, orderID int64) ([]domain.DeliveryRequest, error)
	ReleaseCapacity(ctx context.Context, caller domain.Caller, partnerID int64) (int, error)
}

// NewDispatchUsecase wires a dispatch.Service into a dispatchUsecase.
func NewDispatchUsecase(svc *dispatch.Service) dispatchUsecase {
	return svc
}
