package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/WarehouseGo/internal/service"
	"github.com/utafrali/WarehouseGo/pkg/httputil"
	"github.com/utafrali/WarehouseGo/pkg/pagination"
)

// SupplierHandler serves supplier registration and restocking.
type SupplierHandler struct {
	suppliers *service.SupplierService
	logger    *slog.Logger
}

func NewSupplierHandler(suppliers *service.SupplierService, logger *slog.Logger) *SupplierHandler {
	return &SupplierHandler{suppliers: suppliers, logger: logger}
}

// RegisterSupplierRequest is the body of POST /api/v1/suppliers.
type RegisterSupplierRequest struct {
	Name    string `json:"name" validate:"required,max=255"`
	Contact string `json:"contact" validate:"required,max=255"`
}

// SupplyRequest is the body of POST /api/v1/suppliers/{id}/supplies.
type SupplyRequest struct {
	ProductID int64 `json:"product_id" validate:"gt=0"`
	Quantity  int   `json:"quantity" validate:"gt=0"`
}

// RegisterSupplier handles POST /api/v1/suppliers
func (h *SupplierHandler) RegisterSupplier(w http.ResponseWriter, r *http.Request) {
	var req RegisterSupplierRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	supplier, err := h.suppliers.RegisterSupplier(r.Context(), req.Name, req.Contact)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: supplier})
}

// GetSupplier handles GET /api/v1/suppliers/{id}
func (h *SupplierHandler) GetSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, "supplier id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	supplier, err := h.suppliers.GetSupplier(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: supplier})
}

// Supply handles POST /api/v1/suppliers/{id}/supplies
func (h *SupplierHandler) Supply(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, "supplier id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req SupplyRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	result, err := h.suppliers.Supply(r.Context(), id, req.ProductID, req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: result})
}

// ListSupplyRecords handles GET /api/v1/supply-records
func (h *SupplierHandler) ListSupplyRecords(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)
	records, total, err := h.suppliers.ListSupplyRecords(r.Context(), page)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(records, total, page))
}
