package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/WarehouseGo/internal/app"
	"github.com/utafrali/WarehouseGo/internal/config"
	"github.com/utafrali/WarehouseGo/internal/domain"
	"github.com/utafrali/WarehouseGo/pkg/httpclient"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newWarehouse(t *testing.T) *httptest.Server {
	t.Helper()
	cfg, err := config.LoadFrom(map[string]string{"STORE_DRIVER": "memory"})
	require.NoError(t, err)
	a, err := app.NewApp(cfg, testLogger())
	require.NoError(t, err)
	srv := httptest.NewServer(a.Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = a.Shutdown()
	})
	return srv
}

func newAPI(name string) *httpclient.CircuitBreakerClient {
	cfg := httpclient.DefaultConfig()
	cfg.MaxRetries = 0
	return httpclient.NewCircuitBreakerClient(httpclient.New(cfg), httpclient.DefaultCircuitBreakerConfig(name), testLogger())
}

func TestSeeder_LoadsConsistentData(t *testing.T) {
	srv := newWarehouse(t)
	api := newAPI("seed-test")
	seeder := NewSeeder(api, srv.URL+"/", 1, testLogger())
	ctx := context.Background()

	require.NoError(t, seeder.Ready(ctx))
	sum, err := seeder.Run(ctx, 40)
	require.NoError(t, err)

	assert.Equal(t, len(suppliers), sum.Suppliers)
	assert.Equal(t, len(catalogue), sum.Products)
	assert.Equal(t, len(catalogue)-1, sum.Supplies)
	assert.Equal(t, 40, sum.Orders+sum.Rejected)
	assert.Positive(t, sum.Orders)
	assert.LessOrEqual(t, sum.Cancelled+sum.Shipped, sum.Orders)
	assert.LessOrEqual(t, sum.Delivered, sum.Shipped)

	var records []domain.SupplyRecord
	require.NoError(t, api.SendJSON(ctx, http.MethodGet, srv.URL+"/api/v1/supply-records?per_page=100", nil, &records))
	assert.Len(t, records, sum.Supplies)

	// Units are conserved: every unit received is either on the shelf or
	// held by a live order.
	received := 0
	for _, def := range catalogue {
		received += def.stock + def.restock
	}

	var products []domain.Product
	require.NoError(t, api.SendJSON(ctx, http.MethodGet, srv.URL+"/api/v1/products?per_page=100", nil, &products))
	require.Len(t, products, len(catalogue))
	onShelf := 0
	for _, p := range products {
		assert.GreaterOrEqual(t, p.StockQuantity, 0)
		onShelf += p.StockQuantity
	}

	var orders []domain.Order
	require.NoError(t, api.SendJSON(ctx, http.MethodGet, srv.URL+"/api/v1/orders?per_page=100", nil, &orders))
	require.Len(t, orders, sum.Orders)
	held, cancelled := 0, 0
	for _, o := range orders {
		var full domain.Order
		require.NoError(t, api.SendJSON(ctx, http.MethodGet, seeder.url("/orders/%d", o.ID), nil, &full))
		if full.Status == domain.StatusCancelled {
			cancelled++
			continue
		}
		for _, it := range full.Items {
			held += it.Quantity
		}
	}
	assert.Equal(t, sum.Cancelled, cancelled)
	assert.Equal(t, received, onShelf+held)
}

func TestSeeder_SameSeedSameOrders(t *testing.T) {
	ids := []int64{1, 2, 3, 4, 5}
	a := NewSeeder(nil, "http://unused", 7, testLogger())
	b := NewSeeder(nil, "http://unused", 7, testLogger())
	for i := 0; i < 10; i++ {
		la, lb := a.randomLines(ids), b.randomLines(ids)
		assert.Equal(t, la, lb)

		seen := map[int64]bool{}
		for _, l := range la {
			assert.False(t, seen[l.ProductID], "duplicate product in one order")
			seen[l.ProductID] = true
			assert.True(t, l.Quantity >= 1 && l.Quantity <= 4)
		}
	}
}

func TestSeeder_ReadyFailsWhenUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := NewSeeder(newAPI("seed-down"), url, 1, testLogger()).Ready(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "readiness probe")
}

func TestSeeder_RegistrationErrorStopsRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"VALIDATION_ERROR","message":"contact is required"}}`))
	}))
	t.Cleanup(srv.Close)

	sum, err := NewSeeder(newAPI("seed-reject"), srv.URL, 1, testLogger()).Run(context.Background(), 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "register supplier")
	assert.Zero(t, sum.Suppliers)
}
