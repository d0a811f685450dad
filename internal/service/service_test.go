package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/WarehouseGo/internal/cache"
	"github.com/utafrali/WarehouseGo/internal/domain"
	"github.com/utafrali/WarehouseGo/internal/repository/memory"
)

// ============================================================================
// Mock event publisher
// ============================================================================

type mockEvents struct {
	mock.Mock
}

func (m *mockEvents) StockChanged(ctx context.Context, p *domain.Product, delta int, reason string) error {
	args := m.Called(ctx, p, delta, reason)
	return args.Error(0)
}

func (m *mockEvents) LowStock(ctx context.Context, p *domain.Product, threshold int) error {
	args := m.Called(ctx, p, threshold)
	return args.Error(0)
}

func (m *mockEvents) OrderPlaced(ctx context.Context, o *domain.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *mockEvents) OrderCancelled(ctx context.Context, o *domain.Order, restored map[int64]int) error {
	args := m.Called(ctx, o, restored)
	return args.Error(0)
}

func (m *mockEvents) OrderStatusChanged(ctx context.Context, orderID int64, from, to domain.Status) error {
	args := m.Called(ctx, orderID, from, to)
	return args.Error(0)
}

func (m *mockEvents) ShipmentCreated(ctx context.Context, s *domain.Shipment) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *mockEvents) ShipmentStatusChanged(ctx context.Context, s *domain.ShipmentDetails, from domain.Status) error {
	args := m.Called(ctx, s, from)
	return args.Error(0)
}

func (m *mockEvents) SupplyRecorded(ctx context.Context, r *domain.SupplyRecord, supplierID int64) error {
	args := m.Called(ctx, r, supplierID)
	return args.Error(0)
}

// publishAll accepts every event and answers with err, replacing earlier
// expectations.
func (m *mockEvents) publishAll(err error) {
	m.ExpectedCalls = nil
	m.On("StockChanged", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(err)
	m.On("LowStock", mock.Anything, mock.Anything, mock.Anything).Return(err)
	m.On("OrderPlaced", mock.Anything, mock.Anything).Return(err)
	m.On("OrderCancelled", mock.Anything, mock.Anything, mock.Anything).Return(err)
	m.On("OrderStatusChanged", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(err)
	m.On("ShipmentCreated", mock.Anything, mock.Anything).Return(err)
	m.On("ShipmentStatusChanged", mock.Anything, mock.Anything, mock.Anything).Return(err)
	m.On("SupplyRecorded", mock.Anything, mock.Anything, mock.Anything).Return(err)
}

func productWithID(id int64) any {
	return mock.MatchedBy(func(p *domain.Product) bool { return p.ID == id })
}

type harness struct {
	gw        *memory.Gateway
	mirror    *cache.Local
	events    *mockEvents
	ledger    *StockLedger
	orders    *OrderService
	shipments *ShipmentService
	suppliers *SupplierService
}

const testLowStockThreshold = 2

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessOver(t, nil)
}

// newHarnessOver hands the services wrap(mirror) instead of the local mirror
// itself. h.mirror always points at the unwrapped one.
func newHarnessOver(t *testing.T, wrap func(cache.Mirror) cache.Mirror) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gw := memory.NewGateway(0)
	local := cache.NewLocal()
	events := &mockEvents{}
	events.publishAll(nil)

	var mirror cache.Mirror = local
	if wrap != nil {
		mirror = wrap(local)
	}

	ledger := NewStockLedger(gw, mirror, events, logger, testLowStockThreshold)
	orders := NewOrderService(gw, ledger, mirror, events, logger)
	return &harness{
		gw:        gw,
		mirror:    local,
		events:    events,
		ledger:    ledger,
		orders:    orders,
		shipments: NewShipmentService(gw, orders, mirror, events, logger),
		suppliers: NewSupplierService(gw, ledger, events, logger),
	}
}

func (h *harness) addProduct(t *testing.T, id int64, name, price string, stock int) *domain.Product {
	t.Helper()
	p, err := h.ledger.AddProduct(context.Background(), &domain.Product{
		ID:            id,
		Name:          name,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
	})
	require.NoError(t, err)
	return p
}

// stock reads committed stock straight from the store, bypassing the mirror.
func (h *harness) stock(t *testing.T, id int64) int {
	t.Helper()
	p, err := h.gw.Queries().GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p.StockQuantity
}

// evict drops a product from the mirror the way an expiring entry would.
func (h *harness) evict(t *testing.T, id int64) {
	t.Helper()
	p, err := h.gw.Queries().GetProduct(context.Background(), id)
	require.NoError(t, err)
	require.NoError(t, h.mirror.DeleteProduct(context.Background(), id, p.Version))
}

func (h *harness) order(t *testing.T, id int64) *domain.Order {
	t.Helper()
	o, err := h.gw.Queries().GetOrder(context.Background(), id)
	require.NoError(t, err)
	return o
}

func (h *harness) place(t *testing.T, lines ...domain.OrderLine) *domain.Order {
	t.Helper()
	o, err := h.orders.PlaceOrder(context.Background(), lines)
	require.NoError(t, err)
	return o
}

func line(productID int64, qty int) domain.OrderLine {
	return domain.OrderLine{ProductID: productID, Quantity: qty}
}
