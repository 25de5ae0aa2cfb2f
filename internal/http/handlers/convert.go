package handlers

import (
	"service-dispatch/internal/domain"
	"service-dispatch/internal/service/dispatch"
)

func (r createRequestRequest) toInput() dispatch.CreateRequestInput {
	return dispatch.CreateRequestInput{
		OrderID:     r.OrderID,
		PartnerID:   r.PartnerID,
		Type:        domain.RequestType(r.RequestType),
		ProposedFee: r.ProposedFee,
		Message:     r.Message,
		ExpiresAt:   r.ExpiresAt,
	}
}

func requestToResponse(r domain.DeliveryRequest) requestDTO {
	return requestDTO{
		ID:              r.ID,
		OrderID:         r.OrderID,
		PartnerID:       r.PartnerID,
		RequestType:     string(r.Type),
		Status:          string(r.Status),
		ProposedFee:     r.ProposedFee,
		Message:         r.Message,
		ResponseMessage: r.ResponseMessage,
		RequestedBy:     r.RequestedBy,
		ExpiresAt:       r.ExpiresAt,
		RespondedAt:     r.RespondedAt,
		CreatedAt:       r.CreatedAt,
	}
}

func requestsToResponse(list []domain.DeliveryRequest) requestListResponse {
	out := make([]requestDTO, 0, len(list))
	for _, r := range list {
		out = append(out, requestToResponse(r))
	}
	return requestListResponse{Requests: out}
}

func assignmentToResponse(a domain.Assignment) assignmentDTO {
	return assignmentDTO{
		ID:              a.ID,
		OrderID:         a.OrderID,
		PartnerID:       a.PartnerID,
		AssignmentType:  string(a.Type),
		DeliveryFee:     a.DeliveryFee,
		Status:          string(a.Status),
		PickupAddress:   a.PickupAddress,
		DeliveryAddress: a.DeliveryAddress,
		AssignedAt:      a.AssignedAt,
	}
}

func nearbyToResponse(res domain.NearbyResult) nearbyResponse {
	out := make([]nearbyOrderDTO, 0, len(res.Orders))
	for _, n := range res.Orders {
		dto := nearbyOrderDTO{
			OrderID:         n.Order.ID,
			StoreID:         n.Order.StoreID,
			Status:          string(n.Order.Status),
			DistanceKm:      n.DistanceKm,
			EstimatedFee:    n.EstimatedFee,
			TotalAmount:     n.Order.TotalAmount,
			PickupAddress:   n.Order.PickupAddress,
			DeliveryAddress: n.Order.DeliveryAddress,
			CreatedAt:       n.Order.CreatedAt,
		}
		if loc := n.Order.DeliveryLocation; loc != nil {
			dto.Latitude, dto.Longitude = loc.Lat, loc.Lng
		}
		out = append(out, dto)
	}
	return nearbyResponse{Orders: out, Reason: res.Reason}
}
