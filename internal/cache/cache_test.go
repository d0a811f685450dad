package cache

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/WarehouseGo/internal/domain"
	"github.com/utafrali/WarehouseGo/internal/repository/memory"
)

var (
	_ Mirror = (*Local)(nil)
	_ Mirror = Nop{}
)

func TestLocal_Products(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()

	_, ok, err := l.Product(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.PutProducts(ctx,
		domain.Product{ID: 1, Name: "Widget", StockQuantity: 5},
		domain.Product{ID: 2, Name: "Gadget", StockQuantity: 1},
	))
	p, ok, err := l.Product(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, p.StockQuantity)

	p.StockQuantity = 99
	again, _, _ := l.Product(ctx, 1)
	assert.Equal(t, 5, again.StockQuantity)

	require.NoError(t, l.DeleteProduct(ctx, 1, 1))
	_, ok, _ = l.Product(ctx, 1)
	assert.False(t, ok)
}

func TestLocal_OlderVersionNeverReplacesNewer(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()

	require.NoError(t, l.PutProducts(ctx, domain.Product{ID: 1, StockQuantity: 1, Version: 7}))
	require.NoError(t, l.PutProducts(ctx, domain.Product{ID: 1, StockQuantity: 5, Version: 4}))

	p, ok, err := l.Product(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, p.StockQuantity)

	require.NoError(t, l.PutProducts(ctx, domain.Product{ID: 1, StockQuantity: 2, Version: 7}))
	p, _, _ = l.Product(ctx, 1)
	assert.Equal(t, 2, p.StockQuantity, "same version is accepted")

	require.NoError(t, l.PutOrder(ctx, &domain.Order{ID: 3, Status: domain.StatusShipped, Version: 9}))
	require.NoError(t, l.PutOrder(ctx, &domain.Order{ID: 3, Status: domain.StatusPending, Version: 8}))
	o, _, _ := l.Order(ctx, 3)
	assert.Equal(t, domain.StatusShipped, o.Status)
}

func TestLocal_DeleteLeavesTombstone(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()

	require.NoError(t, l.PutProducts(ctx, domain.Product{ID: 1, Version: 3}))
	require.NoError(t, l.DeleteProduct(ctx, 1, 6))

	require.NoError(t, l.PutProducts(ctx, domain.Product{ID: 1, Version: 3}))
	_, ok, _ := l.Product(ctx, 1)
	assert.False(t, ok, "a fill read before the delete must not resurrect the product")

	require.NoError(t, l.PutProducts(ctx, domain.Product{ID: 1, Name: "Reused", Version: 10}))
	p, ok, _ := l.Product(ctx, 1)
	require.True(t, ok)
	assert.Equal(t, "Reused", p.Name)

	require.NoError(t, l.DeleteProduct(ctx, 1, 8))
	_, ok, _ = l.Product(ctx, 1)
	assert.True(t, ok, "a late delete must not drop a newer product")

	require.NoError(t, l.PutOrder(ctx, &domain.Order{ID: 2, Version: 4}))
	require.NoError(t, l.DeleteOrder(ctx, 2, 5))
	require.NoError(t, l.PutOrder(ctx, &domain.Order{ID: 2, Version: 4}))
	_, ok, _ = l.Order(ctx, 2)
	assert.False(t, ok)
}

func TestLocal_OrdersAreCopied(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()

	o := &domain.Order{ID: 3, Status: domain.StatusPending, Items: []domain.OrderItem{{ProductID: 1, Quantity: 2}}}
	require.NoError(t, l.PutOrder(ctx, o))
	o.Items[0].Quantity = 50

	got, ok, err := l.Order(ctx, 3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, got.Items[0].Quantity)

	require.NoError(t, l.DeleteOrder(ctx, 3, 1))
	products, orders := l.Len()
	assert.Zero(t, products)
	assert.Zero(t, orders)
}

func TestNop(t *testing.T) {
	ctx := context.Background()
	var n Nop
	require.NoError(t, n.PutProducts(ctx, domain.Product{ID: 1}))
	_, ok, err := n.Product(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWarm_PagesThroughStore(t *testing.T) {
	ctx := context.Background()
	gw := memory.NewGateway(0)
	for i := int64(1); i <= 150; i++ {
		_, err := gw.Queries().InsertProduct(ctx, &domain.Product{
			ID: i, Name: fmt.Sprintf("item-%d", i), Price: decimal.NewFromInt(i), StockQuantity: int(i),
		})
		require.NoError(t, err)
	}

	l := NewLocal()
	n, err := Warm(ctx, l, gw.Queries())
	require.NoError(t, err)
	assert.Equal(t, 150, n)

	products, _ := l.Len()
	assert.Equal(t, 150, products)
	p, ok, _ := l.Product(ctx, 150)
	require.True(t, ok)
	assert.Equal(t, "item-150", p.Name)
}

func TestWarm_EmptyStore(t *testing.T) {
	n, err := Warm(context.Background(), NewLocal(), memory.NewGateway(0).Queries())
	require.NoError(t, err)
	assert.Zero(t, n)
}
