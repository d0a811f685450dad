package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/WarehouseGo/internal/service"
	"github.com/utafrali/WarehouseGo/pkg/httputil"
	"github.com/utafrali/WarehouseGo/pkg/pagination"
)

// ShipmentHandler serves the shipment endpoints.
type ShipmentHandler struct {
	shipments *service.ShipmentService
	logger    *slog.Logger
}

func NewShipmentHandler(shipments *service.ShipmentService, logger *slog.Logger) *ShipmentHandler {
	return &ShipmentHandler{shipments: shipments, logger: logger}
}

// CreateShipmentRequest is the body of POST /api/v1/shipments.
type CreateShipmentRequest struct {
	OrderID int64 `json:"order_id" validate:"required,gt=0"`
}

// UpdateShipmentStatusRequest is the body of PUT /api/v1/shipments/{id}/status.
// The status is matched case-insensitively.
type UpdateShipmentStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// CreateShipment handles POST /api/v1/shipments
func (h *ShipmentHandler) CreateShipment(w http.ResponseWriter, r *http.Request) {
	var req CreateShipmentRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	shipment, err := h.shipments.CreateShipment(r.Context(), req.OrderID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: shipment})
}

// ListShipments handles GET /api/v1/shipments
func (h *ShipmentHandler) ListShipments(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)
	shipments, total, err := h.shipments.ListShipments(r.Context(), page)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(shipments, total, page))
}

// GetShipment handles GET /api/v1/shipments/{id}
func (h *ShipmentHandler) GetShipment(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, "shipment id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	shipment, err := h.shipments.GetShipment(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: shipment})
}

// UpdateShipmentStatus handles PUT /api/v1/shipments/{id}/status
func (h *ShipmentHandler) UpdateShipmentStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, "shipment id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateShipmentStatusRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	shipment, err := h.shipments.UpdateShipmentStatus(r.Context(), id, req.Status)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: shipment})
}
