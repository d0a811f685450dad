package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/WarehouseGo/pkg/errors"
	"github.com/utafrali/WarehouseGo/pkg/pagination"
)

func TestRegisterSupplier(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.suppliers.RegisterSupplier(ctx, " Acme ", "acme@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, "Acme", first.Name)

	second, err := h.suppliers.RegisterSupplier(ctx, "Globex", "+1 555 0100")
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.ID)

	_, err = h.suppliers.RegisterSupplier(ctx, "", "x")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	_, err = h.suppliers.RegisterSupplier(ctx, "Initech", " ")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	got, err := h.suppliers.GetSupplier(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Globex", got.Name)

	_, err = h.suppliers.GetSupplier(ctx, 3)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSupply_RestocksAndLogs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addProduct(t, 1, "Widget", "10", 5)
	h.place(t, line(1, 3))

	supplier, err := h.suppliers.RegisterSupplier(ctx, "Acme", "acme@example.com")
	require.NoError(t, err)

	res, err := h.suppliers.Supply(ctx, supplier.ID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 22, res.Product.StockQuantity)
	require.NotNil(t, res.Product.SupplierName)
	assert.Equal(t, "Acme", *res.Product.SupplierName)
	assert.Equal(t, 22, h.stock(t, 1))

	records, total, err := h.suppliers.ListSupplyRecords(ctx, pagination.DefaultParams())
	require.NoError(t, err)
	require.Equal(t, 1, total)
	rec := records[0]
	assert.Equal(t, 20, rec.Quantity)
	assert.Equal(t, "Widget", rec.ProductName)
	assert.Equal(t, "Acme", rec.SupplierName)
	assert.Equal(t, time.Now().UTC().Truncate(24*time.Hour), rec.SupplyDate)

	cached, ok, err := h.mirror.Product(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 22, cached.StockQuantity)
	h.events.AssertNumberOfCalls(t, "SupplyRecorded", 1)
	h.events.AssertCalled(t, "SupplyRecorded", mock.Anything, mock.Anything, supplier.ID)
}

func TestSupply_LastSupplierWins(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addProduct(t, 1, "Widget", "10", 0)
	acme, err := h.suppliers.RegisterSupplier(ctx, "Acme", "a")
	require.NoError(t, err)
	globex, err := h.suppliers.RegisterSupplier(ctx, "Globex", "g")
	require.NoError(t, err)

	_, err = h.suppliers.Supply(ctx, acme.ID, 1, 5)
	require.NoError(t, err)
	res, err := h.suppliers.Supply(ctx, globex.ID, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "Globex", *res.Product.SupplierName)
	assert.Equal(t, 6, h.stock(t, 1))

	_, total, err := h.suppliers.ListSupplyRecords(ctx, pagination.DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestSupply_Rejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addProduct(t, 1, "Widget", "10", 2)
	supplier, err := h.suppliers.RegisterSupplier(ctx, "Acme", "a")
	require.NoError(t, err)

	for _, qty := range []int{0, -5} {
		_, err = h.suppliers.Supply(ctx, supplier.ID, 1, qty)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	}

	_, err = h.suppliers.Supply(ctx, 9, 1, 5)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = h.suppliers.Supply(ctx, supplier.ID, 9, 5)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.Equal(t, 2, h.stock(t, 1))
	_, total, err := h.suppliers.ListSupplyRecords(ctx, pagination.DefaultParams())
	require.NoError(t, err)
	assert.Zero(t, total)
}
