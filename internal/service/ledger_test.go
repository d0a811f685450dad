package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/WarehouseGo/internal/domain"
	"github.com/utafrali/WarehouseGo/internal/repository"
	apperrors "github.com/utafrali/WarehouseGo/pkg/errors"
	"github.com/utafrali/WarehouseGo/pkg/pagination"
)

func TestAddProduct_Validation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		product domain.Product
	}{
		{"blank name", domain.Product{ID: 1, Name: "  ", Price: decimal.NewFromInt(1)}},
		{"negative price", domain.Product{ID: 1, Name: "Widget", Price: decimal.RequireFromString("-1")}},
		{"three decimals", domain.Product{ID: 1, Name: "Widget", Price: decimal.RequireFromString("1.005")}},
		{"negative stock", domain.Product{ID: 1, Name: "Widget", Price: decimal.NewFromInt(1), StockQuantity: -1}},
		{"negative id", domain.Product{ID: -4, Name: "Widget", Price: decimal.NewFromInt(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.product
			_, err := h.ledger.AddProduct(ctx, &p)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}

	_, total, err := h.ledger.ListProducts(ctx, pagination.DefaultParams())
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestAddProduct_IDs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.addProduct(t, 7, "Widget", "10", 5)

	_, err := h.ledger.AddProduct(ctx, &domain.Product{ID: 7, Name: "Other", Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)

	auto := h.addProduct(t, 0, "Gadget", "2.50", 1)
	assert.Equal(t, int64(8), auto.ID)

	cached, ok, err := h.mirror.Product(ctx, auto.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Gadget", cached.Name)
}

func TestAdjustStock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addProduct(t, 1, "Widget", "10", 5)

	p, err := h.ledger.AdjustStock(ctx, 1, 4)
	require.NoError(t, err)
	assert.Equal(t, 9, p.StockQuantity)

	_, err = h.ledger.AdjustStock(ctx, 1, -10)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
	assert.Equal(t, 9, h.stock(t, 1))

	p, err = h.ledger.AdjustStock(ctx, 1, -9)
	require.NoError(t, err)
	assert.Zero(t, p.StockQuantity)

	_, err = h.ledger.AdjustStock(ctx, 1, 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = h.ledger.AdjustStock(ctx, 99, 3)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = h.ledger.AdjustStock(ctx, 99, -3)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	cached, ok, err := h.mirror.Product(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Zero(t, cached.StockQuantity)
}

func TestAdjust_PrimitiveHitsStockConstraint(t *testing.T) {
	h := newHarness(t)
	h.addProduct(t, 1, "Widget", "10", 2)

	err := runUnit(context.Background(), h.gw, unitAdjustStock, func(ctx context.Context, q repository.Queries) error {
		_, err := h.ledger.adjust(ctx, q, 1, -3)
		return err
	})
	assert.ErrorIs(t, err, apperrors.ErrTxAborted)
	assert.Equal(t, 2, h.stock(t, 1))
}

func TestCheckAvailable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addProduct(t, 1, "Widget", "10", 5)

	ok, err := h.ledger.CheckAvailable(ctx, 1, 5)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.ledger.CheckAvailable(ctx, 1, 6)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = h.ledger.CheckAvailable(ctx, 42, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = h.ledger.CheckAvailable(ctx, 1, -1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestGetProduct_FillsMirrorOnMiss(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addProduct(t, 1, "Widget", "10", 5)
	h.evict(t, 1)

	p, err := h.ledger.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Widget", p.Name)

	_, ok, err := h.mirror.Product(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = h.ledger.GetProduct(ctx, 2)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRemove_CascadesAndInvalidatesMirror(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addProduct(t, 1, "Widget", "10", 5)
	h.addProduct(t, 2, "Gadget", "3", 5)
	o := h.place(t, line(1, 1), line(2, 2))

	supplier, err := h.suppliers.RegisterSupplier(ctx, "Acme", "acme@example.com")
	require.NoError(t, err)
	_, err = h.suppliers.Supply(ctx, supplier.ID, 1, 3)
	require.NoError(t, err)

	require.NoError(t, h.ledger.Remove(ctx, 1))

	_, err = h.ledger.GetProduct(ctx, 1)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, ok, err := h.mirror.Order(ctx, o.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := h.orders.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, int64(2), got.Items[0].ProductID)
	assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(16)), "total stays frozen")

	records, _, err := h.suppliers.ListSupplyRecords(ctx, pagination.DefaultParams())
	require.NoError(t, err)
	assert.Empty(t, records)

	assert.ErrorIs(t, h.ledger.Remove(ctx, 1), apperrors.ErrNotFound)
}

func TestLowStockSignal(t *testing.T) {
	h := newHarness(t)
	h.addProduct(t, 1, "Widget", "10", 5)
	h.addProduct(t, 2, "Gadget", "10", 50)

	h.place(t, line(1, 2), line(2, 2))
	h.events.AssertNotCalled(t, "LowStock", mock.Anything, mock.Anything, mock.Anything)

	h.place(t, line(1, 1), line(2, 1))
	h.events.AssertNumberOfCalls(t, "LowStock", 1)
	h.events.AssertCalled(t, "LowStock", mock.Anything, productWithID(1), testLowStockThreshold)
	h.events.AssertNotCalled(t, "LowStock", mock.Anything, productWithID(2), mock.Anything)
	h.events.AssertNumberOfCalls(t, "StockChanged", 4)
	h.events.AssertCalled(t, "StockChanged", mock.Anything, productWithID(1), -1, ReasonOrderPlaced)
}

func TestSideEffectFailuresDoNotUndoCommit(t *testing.T) {
	h := newHarness(t)
	h.events.publishAll(errors.New("broker unavailable"))
	h.addProduct(t, 1, "Widget", "10", 5)

	o, err := h.orders.PlaceOrder(context.Background(), []domain.OrderLine{line(1, 2)})
	require.NoError(t, err)
	assert.Equal(t, 3, h.stock(t, 1))
	assert.Equal(t, domain.StatusPending, h.order(t, o.ID).Status)
	h.events.AssertCalled(t, "OrderPlaced", mock.Anything, mock.Anything)
}

func TestRunUnit_RecordsOutcome(t *testing.T) {
	h := newHarness(t)
	h.addProduct(t, 1, "Widget", "10", 5)

	rejected := unitsTotal.WithLabelValues(unitPlaceOrder, "rejected")
	committed := unitsTotal.WithLabelValues(unitPlaceOrder, "committed")
	beforeRejected, beforeCommitted := testutil.ToFloat64(rejected), testutil.ToFloat64(committed)

	_, err := h.orders.PlaceOrder(context.Background(), []domain.OrderLine{line(1, 50)})
	require.Error(t, err)
	h.place(t, line(1, 1))

	assert.Equal(t, beforeRejected+1, testutil.ToFloat64(rejected))
	assert.Equal(t, beforeCommitted+1, testutil.ToFloat64(committed))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "committed", outcome(nil))
	assert.Equal(t, "aborted", outcome(apperrors.TxAborted("x", errors.New("boom"))))
	assert.Equal(t, "rejected", outcome(apperrors.NotFound("order", 1)))
}
