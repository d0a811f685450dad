package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/WarehouseGo/internal/service"
	"github.com/utafrali/WarehouseGo/pkg/health"
	"github.com/utafrali/WarehouseGo/pkg/middleware"
)

// ServiceName labels request metrics and spans.
const ServiceName = "warehouse"

// Services groups the engine components the router exposes.
type Services struct {
	Ledger    *service.StockLedger
	Orders    *service.OrderService
	Shipments *service.ShipmentService
	Suppliers *service.SupplierService
}

// NewRouter creates a chi router with every warehouse route registered.
func NewRouter(svc Services, healthHandler *health.Handler, cors middleware.CORSConfig, limit middleware.RateLimitConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.CORS(cors))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RateLimit(ServiceName, limit, logger))
	r.Use(middleware.Tracing(ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(ServiceName))

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	products := NewProductHandler(svc.Ledger, logger)
	orders := NewOrderHandler(svc.Orders, logger)
	shipments := NewShipmentHandler(svc.Shipments, logger)
	suppliers := NewSupplierHandler(svc.Suppliers, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Post("/", products.AddProduct)
			r.Get("/", products.ListProducts)
			r.Get("/{id}", products.GetProduct)
			r.Delete("/{id}", products.DeleteProduct)
			r.Get("/{id}/stock", products.CheckStock)
			r.Post("/{id}/stock", products.AdjustStock)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", orders.PlaceOrder)
			r.Get("/", orders.ListOrders)
			r.Get("/{id}", orders.GetOrder)
			r.Get("/{id}/tracking", orders.TrackOrder)
			r.Post("/{id}/cancel", orders.CancelOrder)
		})

		r.Route("/shipments", func(r chi.Router) {
			r.Post("/", shipments.CreateShipment)
			r.Get("/", shipments.ListShipments)
			r.Get("/{id}", shipments.GetShipment)
			r.Put("/{id}/status", shipments.UpdateShipmentStatus)
		})

		r.Route("/suppliers", func(r chi.Router) {
			r.Post("/", suppliers.RegisterSupplier)
			r.Get("/{id}", suppliers.GetSupplier)
			r.Post("/{id}/supplies", suppliers.Supply)
		})
		r.Get("/supply-records", suppliers.ListSupplyRecords)
	})

	return r
}
