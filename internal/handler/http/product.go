package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/utafrali/WarehouseGo/internal/domain"
	"github.com/utafrali/WarehouseGo/internal/service"
	"github.com/utafrali/WarehouseGo/pkg/httputil"
	"github.com/utafrali/WarehouseGo/pkg/pagination"
)

// ProductHandler serves the product catalogue and stock endpoints.
type ProductHandler struct {
	ledger *service.StockLedger
	logger *slog.Logger
}

func NewProductHandler(ledger *service.StockLedger, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{ledger: ledger, logger: logger}
}

// AddProductRequest is the body of POST /api/v1/products. A zero product_id
// asks for the next free id.
type AddProductRequest struct {
	ProductID     int64           `json:"product_id" validate:"gte=0"`
	Name          string          `json:"name" validate:"required,max=255"`
	Description   string          `json:"description" validate:"max=2000"`
	Price         decimal.Decimal `json:"price" validate:"gte=0"`
	StockQuantity int             `json:"stock_quantity" validate:"gte=0"`
}

// AdjustStockRequest is the body of POST /api/v1/products/{id}/stock.
type AdjustStockRequest struct {
	Delta int `json:"delta" validate:"required"`
}

// AvailabilityResponse answers GET /api/v1/products/{id}/stock.
type AvailabilityResponse struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
	Available bool  `json:"available"`
}

// AddProduct handles POST /api/v1/products
func (h *ProductHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	var req AddProductRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	product, err := h.ledger.AddProduct(r.Context(), &domain.Product{
		ID:            req.ProductID,
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: product})
}

// ListProducts handles GET /api/v1/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)
	products, total, err := h.ledger.ListProducts(r.Context(), page)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(products, total, page))
}

// GetProduct handles GET /api/v1/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, "product id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	product, err := h.ledger.GetProduct(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// DeleteProduct handles DELETE /api/v1/products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, "product id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.ledger.Remove(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CheckStock handles GET /api/v1/products/{id}/stock?quantity=n. The
// quantity defaults to 1.
func (h *ProductHandler) CheckStock(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, "product id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	quantity := 1
	if v := r.URL.Query().Get("quantity"); v != "" {
		q, err := strconv.Atoi(v)
		if err != nil || q < 0 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "quantity must be a non-negative integer"},
			})
			return
		}
		quantity = q
	}

	available, err := h.ledger.CheckAvailable(r.Context(), id, quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: AvailabilityResponse{
		ProductID: id,
		Quantity:  quantity,
		Available: available,
	}})
}

// AdjustStock handles POST /api/v1/products/{id}/stock
func (h *ProductHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, "product id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req AdjustStockRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	product, err := h.ledger.AdjustStock(r.Context(), id, req.Delta)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}
