package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/utafrali/WarehouseGo/internal/domain"
	apperrors "github.com/utafrali/WarehouseGo/pkg/errors"
	"github.com/utafrali/WarehouseGo/pkg/httpclient"
)

type supplierDef struct {
	name    string
	contact string
}

type productDef struct {
	name        string
	description string
	price       string
	stock       int
	restock     int
}

var suppliers = []supplierDef{
	{"Northwind Traders", "orders@northwind.example"},
	{"Acme Industrial", "+1 555 0100"},
	{"Baltic Fasteners", "sales@baltic-fasteners.example"},
}

var catalogue = []productDef{
	{"Widget", "General purpose widget", "10.00", 5, 20},
	{"Gadget", "Handheld gadget", "24.99", 0, 12},
	{"Sprocket", "Steel sprocket, 42 teeth", "3.50", 40, 60},
	{"Flange", "DN50 weld-neck flange", "18.75", 8, 10},
	{"Bearing", "Sealed ball bearing 6204", "6.20", 15, 30},
	{"Gasket", "Rubber gasket, 50mm", "0.95", 100, 0},
	{"Hex Bolt M8", "Zinc plated, box of 50", "7.40", 0, 25},
	{"Pallet Wrap", "Stretch film roll, 500m", "32.00", 3, 6},
}

// Summary counts what a seeding run created.
type Summary struct {
	Suppliers int
	Products  int
	Supplies  int
	Orders    int
	Rejected  int
	Cancelled int
	Shipped   int
	Delivered int
}

// Seeder drives the warehouse HTTP API with demo data.
type Seeder struct {
	api    *httpclient.CircuitBreakerClient
	base   string
	rng    *rand.Rand
	logger *slog.Logger
}

// NewSeeder creates a Seeder against the API rooted at baseURL.
func NewSeeder(api *httpclient.CircuitBreakerClient, baseURL string, randomSeed int64, logger *slog.Logger) *Seeder {
	return &Seeder{
		api:    api,
		base:   strings.TrimRight(baseURL, "/"),
		rng:    rand.New(rand.NewSource(randomSeed)),
		logger: logger,
	}
}

func (s *Seeder) url(format string, args ...any) string {
	return s.base + "/api/v1" + fmt.Sprintf(format, args...)
}

// Ready fails unless the warehouse reports itself ready.
func (s *Seeder) Ready(ctx context.Context) error {
	resp, err := s.api.Get(ctx, s.base+"/health/ready")
	if err != nil {
		return fmt.Errorf("readiness probe: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("warehouse not ready: status %d", resp.StatusCode)
	}
	return nil
}

// Run registers suppliers, loads the catalogue, restocks it, places orders
// random enough to hit stock limits and moves part of them through
// cancellation, shipping and delivery.
func (s *Seeder) Run(ctx context.Context, orderCount int) (Summary, error) {
	var sum Summary

	supplierIDs := make([]int64, 0, len(suppliers))
	for _, def := range suppliers {
		var sup domain.Supplier
		err := s.api.SendJSON(ctx, http.MethodPost, s.url("/suppliers"),
			map[string]string{"name": def.name, "contact": def.contact}, &sup)
		if err != nil {
			return sum, fmt.Errorf("register supplier %q: %w", def.name, err)
		}
		supplierIDs = append(supplierIDs, sup.ID)
		sum.Suppliers++
	}

	productIDs := make([]int64, 0, len(catalogue))
	for i, def := range catalogue {
		var p domain.Product
		err := s.api.SendJSON(ctx, http.MethodPost, s.url("/products"), map[string]any{
			"name":           def.name,
			"description":    def.description,
			"price":          decimal.RequireFromString(def.price),
			"stock_quantity": def.stock,
		}, &p)
		if err != nil {
			return sum, fmt.Errorf("add product %q: %w", def.name, err)
		}
		productIDs = append(productIDs, p.ID)
		sum.Products++

		if def.restock == 0 {
			continue
		}
		supplierID := supplierIDs[i%len(supplierIDs)]
		err = s.api.SendJSON(ctx, http.MethodPost, s.url("/suppliers/%d/supplies", supplierID),
			map[string]any{"product_id": p.ID, "quantity": def.restock}, nil)
		if err != nil {
			return sum, fmt.Errorf("supply product %d: %w", p.ID, err)
		}
		sum.Supplies++
	}
	s.logger.InfoContext(ctx, "catalogue loaded",
		slog.Int("suppliers", sum.Suppliers),
		slog.Int("products", sum.Products),
		slog.Int("supplies", sum.Supplies),
	)

	var placed []int64
	for i := 0; i < orderCount; i++ {
		var o domain.Order
		err := s.api.SendJSON(ctx, http.MethodPost, s.url("/orders"),
			map[string]any{"items": s.randomLines(productIDs)}, &o)
		if errors.Is(err, apperrors.ErrInsufficientStock) {
			sum.Rejected++
			continue
		}
		if err != nil {
			return sum, fmt.Errorf("place order: %w", err)
		}
		placed = append(placed, o.ID)
		sum.Orders++
	}

	for i, id := range placed {
		switch i % 4 {
		case 0:
			if err := s.api.SendJSON(ctx, http.MethodPost, s.url("/orders/%d/cancel", id), nil, nil); err != nil {
				return sum, fmt.Errorf("cancel order %d: %w", id, err)
			}
			sum.Cancelled++
		case 1, 2:
			var sh domain.Shipment
			err := s.api.SendJSON(ctx, http.MethodPost, s.url("/shipments"), map[string]int64{"order_id": id}, &sh)
			if err != nil {
				return sum, fmt.Errorf("ship order %d: %w", id, err)
			}
			sum.Shipped++
			if i%4 == 2 {
				continue
			}
			err = s.api.SendJSON(ctx, http.MethodPut, s.url("/shipments/%d/status", sh.ID),
				map[string]string{"status": string(domain.StatusDelivered)}, nil)
			if err != nil {
				return sum, fmt.Errorf("deliver shipment %d: %w", sh.ID, err)
			}
			sum.Delivered++
		}
	}
	return sum, nil
}

// randomLines picks one to three distinct products with small quantities.
func (s *Seeder) randomLines(productIDs []int64) []domain.OrderLine {
	n := 1 + s.rng.Intn(3)
	picked := s.rng.Perm(len(productIDs))[:n]
	lines := make([]domain.OrderLine, n)
	for i, idx := range picked {
		lines[i] = domain.OrderLine{ProductID: productIDs[idx], Quantity: 1 + s.rng.Intn(4)}
	}
	return lines
}
