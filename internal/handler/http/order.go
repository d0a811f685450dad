package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/WarehouseGo/internal/domain"
	"github.com/utafrali/WarehouseGo/internal/service"
	"github.com/utafrali/WarehouseGo/pkg/httputil"
	"github.com/utafrali/WarehouseGo/pkg/pagination"
)

// OrderHandler serves the order lifecycle endpoints.
type OrderHandler struct {
	orders *service.OrderService
	logger *slog.Logger
}

func NewOrderHandler(orders *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

// PlaceOrderRequest is the body of POST /api/v1/orders.
type PlaceOrderRequest struct {
	Items []OrderLineRequest `json:"items" validate:"required,min=1,dive"`
}

// OrderLineRequest is one requested product line.
type OrderLineRequest struct {
	ProductID int64 `json:"product_id" validate:"gt=0"`
	Quantity  int   `json:"quantity" validate:"gt=0"`
}

// TrackingResponse answers GET /api/v1/orders/{id}/tracking.
type TrackingResponse struct {
	OrderID int64  `json:"order_id"`
	Message string `json:"message"`
}

// PlaceOrder handles POST /api/v1/orders
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	lines := make([]domain.OrderLine, len(req.Items))
	for i, it := range req.Items {
		lines[i] = domain.OrderLine{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	order, err := h.orders.PlaceOrder(r.Context(), lines)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: order})
}

// ListOrders handles GET /api/v1/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)
	orders, total, err := h.orders.ListOrders(r.Context(), page)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(orders, total, page))
}

// GetOrder handles GET /api/v1/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, "order id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// TrackOrder handles GET /api/v1/orders/{id}/tracking
func (h *OrderHandler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, "order id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	msg, err := h.orders.TrackOrder(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: TrackingResponse{OrderID: id, Message: msg}})
}

// CancelOrder handles POST /api/v1/orders/{id}/cancel
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, "order id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	result, err := h.orders.CancelOrder(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}
