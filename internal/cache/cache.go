// Package cache holds the read mirror of committed products and orders.
// Services write to it only after a transactional unit commits, using the
// rows the unit returned.
package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/utafrali/WarehouseGo/internal/domain"
	"github.com/utafrali/WarehouseGo/internal/repository"
	"github.com/utafrali/WarehouseGo/pkg/pagination"
)

// Mirror is a write-through copy of committed state.
//
// Every entry carries the row version it was read at, and an id remembers the
// highest version it has seen. A put older than that is dropped, so a slow
// read-through fill or a late post-commit write cannot replace newer data.
// Deletes record the removal version and leave a tombstone behind.
type Mirror interface {
	// Product returns the mirrored product and whether it was present.
	Product(ctx context.Context, id int64) (*domain.Product, bool, error)
	PutProducts(ctx context.Context, products ...domain.Product) error
	DeleteProduct(ctx context.Context, id, version int64) error

	Order(ctx context.Context, id int64) (*domain.Order, bool, error)
	PutOrder(ctx context.Context, o *domain.Order) error
	DeleteOrder(ctx context.Context, id, version int64) error
}

// Local is an in-process Mirror.
type Local struct {
	mu       sync.RWMutex
	products map[int64]domain.Product
	orders   map[int64]domain.Order

	// highest version seen per id, kept after deletes
	productSeen map[int64]int64
	orderSeen   map[int64]int64
}

// NewLocal creates an empty in-process mirror.
func NewLocal() *Local {
	return &Local{
		products:    make(map[int64]domain.Product),
		orders:      make(map[int64]domain.Order),
		productSeen: make(map[int64]int64),
		orderSeen:   make(map[int64]int64),
	}
}

// advance raises seen[id] to version and reports whether version is current.
func advance(seen map[int64]int64, id, version int64) bool {
	if version < seen[id] {
		return false
	}
	seen[id] = version
	return true
}

func (l *Local) Product(_ context.Context, id int64) (*domain.Product, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.products[id]
	if !ok {
		return nil, false, nil
	}
	return &p, true, nil
}

func (l *Local) PutProducts(_ context.Context, products ...domain.Product) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range products {
		if advance(l.productSeen, p.ID, p.Version) {
			l.products[p.ID] = p
		}
	}
	return nil
}

func (l *Local) DeleteProduct(_ context.Context, id, version int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if advance(l.productSeen, id, version) {
		delete(l.products, id)
	}
	return nil
}

func (l *Local) Order(_ context.Context, id int64) (*domain.Order, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	o, ok := l.orders[id]
	if !ok {
		return nil, false, nil
	}
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	return &o, true, nil
}

func (l *Local) PutOrder(_ context.Context, o *domain.Order) error {
	stored := *o
	stored.Items = append([]domain.OrderItem(nil), o.Items...)
	l.mu.Lock()
	defer l.mu.Unlock()
	if advance(l.orderSeen, o.ID, o.Version) {
		l.orders[o.ID] = stored
	}
	return nil
}

func (l *Local) DeleteOrder(_ context.Context, id, version int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if advance(l.orderSeen, id, version) {
		delete(l.orders, id)
	}
	return nil
}

// Len returns the number of mirrored products and orders.
func (l *Local) Len() (products, orders int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.products), len(l.orders)
}

// Nop mirrors nothing; every read misses.
type Nop struct{}

func (Nop) Product(context.Context, int64) (*domain.Product, bool, error) { return nil, false, nil }
func (Nop) PutProducts(context.Context, ...domain.Product) error          { return nil }
func (Nop) DeleteProduct(context.Context, int64, int64) error             { return nil }
func (Nop) Order(context.Context, int64) (*domain.Order, bool, error)     { return nil, false, nil }
func (Nop) PutOrder(context.Context, *domain.Order) error                 { return nil }
func (Nop) DeleteOrder(context.Context, int64, int64) error               { return nil }

// Warm loads every product from the store into m and returns how many were
// loaded.
func Warm(ctx context.Context, m Mirror, products repository.ProductStore) (int, error) {
	loaded := 0
	for pageNo := 1; ; pageNo++ {
		batch, total, err := products.ListProducts(ctx, pagination.New(pageNo, pagination.MaxPerPage))
		if err != nil {
			return loaded, fmt.Errorf("warm mirror: %w", err)
		}
		if len(batch) == 0 {
			return loaded, nil
		}
		if err := m.PutProducts(ctx, batch...); err != nil {
			return loaded, fmt.Errorf("warm mirror: %w", err)
		}
		loaded += len(batch)
		if loaded >= total {
			return loaded, nil
		}
	}
}
