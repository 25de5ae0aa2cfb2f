package handlers

import (
	"net/http"

	"service-dispatch/internal/logx"
)

// DispatchHandler handles HTTP requests for delivery requests, discovery and capacity.
type DispatchHandler struct {
	usecase dispatchUsecase
	logger  logx.Logger
}

// NewDispatchHandler creates a new DispatchHandler.
func NewDispatchHandler(logger logx.Logger, uc dispatchUsecase) *DispatchHandler {
	return &DispatchHandler{usecase: uc, logger: logger}
}

func (h *DispatchHandler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := idFromURL(r, name)
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid "+name, "validation")
		return 0, false
	}
	return id, true
}

// NearbyOrders handles GET /partners/{id}/nearby-orders.
// @Summary Orders near a partner
// @Tags discovery
// @Produce json
// @Param id path int true "Partner ID"
// @Success 200 {object} nearbyResponse
// @Failure 403 {object} ErrorResponse "not the partner owner"
// @Failure 422 {object} ErrorResponse "partner location is required"
// @Router /partners/{id}/nearby-orders [get]
func (h *DispatchHandler) NearbyOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	res, err := h.usecase.FindNearbyOrders(r.Context(), callerOf(r), id)
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, nearbyToResponse(res))
}

// PartnerRequests handles GET /partners/{id}/requests.
func (h *DispatchHandler) PartnerRequests(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	list, err := h.usecase.ListPartnerRequests(r.Context(), callerOf(r), id)
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, requestsToResponse(list))
}

// OrderRequests handles GET /orders/{id}/requests.
func (h *DispatchHandler) OrderRequests(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	list, err := h.usecase.ListOrderRequests(r.Context(), callerOf(r), id)
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, requestsToResponse(list))
}

// GetRequest handles GET /requests/{id}.
func (h *DispatchHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	req, err := h.usecase.GetRequest(r.Context(), callerOf(r), id)
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, requestToResponse(req))
}

// CreateRequest handles POST /requests.
// @Summary Create a delivery request
// @Tags requests
// @Accept json
// @Produce json
// @Param request body createRequestRequest true "Request payload"
// @Success 201 {object} requestDTO
// @Failure 400 {object} ErrorResponse "invalid input"
// @Failure 409 {object} ErrorResponse "order already assigned or pending request exists"
// @Router /requests [post]
func (h *DispatchHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var body createRequestRequest
	if ok := decodeJSON(h.logger, w, r, &body); !ok {
		return
	}
	req, err := h.usecase.CreateRequest(r.Context(), callerOf(r), body.toInput())
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusCreated, requestToResponse(req))
}

// AcceptRequest handles POST /requests/{id}/accept.
// @Summary Accept a delivery request and bind the partner to the order
// @Tags requests
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} acceptResponse
// @Failure 409 {object} ErrorResponse "request not pending, expired, order assigned or partner at capacity"
// @Router /requests/{id}/accept [post]
func (h *DispatchHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var body respondRequest
	if ok := decodeOptionalJSON(h.logger, w, r, &body); !ok {
		return
	}
	res, err := h.usecase.AcceptRequest(r.Context(), callerOf(r), id, body.Message)
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, acceptResponse{
		Request:    requestToResponse(res.Request),
		Assignment: assignmentToResponse(res.Assignment),
	})
}

// RejectRequest handles POST /requests/{id}/reject.
func (h *DispatchHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var body respondRequest
	if ok := decodeOptionalJSON(h.logger, w, r, &body); !ok {
		return
	}
	req, err := h.usecase.RejectRequest(r.Context(), callerOf(r), id, body.Message)
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, requestToResponse(req))
}

// CancelRequest handles POST /requests/{id}/cancel.
func (h *DispatchHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	req, err := h.usecase.CancelRequest(r.Context(), callerOf(r), id)
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, requestToResponse(req))
}

// ReleaseCapacity handles POST /partners/{id}/release-capacity.
func (h *DispatchHandler) ReleaseCapacity(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	active, err := h.usecase.ReleaseCapacity(r.Context(), callerOf(r), id)
	if err != nil {
		writeAppError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, releaseCapacityResponse{PartnerID: id, ActiveOrders: active})
}
