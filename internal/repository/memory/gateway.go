// Package memory is a record store held entirely in process memory. It
// serializes transactional units with a single mutex and applies each unit to
// a private copy of the data, so a failed unit leaves nothing behind.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/utafrali/WarehouseGo/internal/domain"
	"github.com/utafrali/WarehouseGo/internal/repository"
	apperrors "github.com/utafrali/WarehouseGo/pkg/errors"
)

type state struct {
	products     map[int64]domain.Product
	suppliers    map[int64]domain.Supplier
	orders       map[int64]domain.Order
	items        map[int64]domain.OrderItem
	shipments    map[int64]domain.Shipment
	records      map[int64]domain.SupplyRecord
	lastItemID   int64
	lastRecordID int64
	version      int64
}

// nextVersion plays the role of the row version sequence.
func (s *state) nextVersion() int64 {
	s.version++
	return s.version
}

func newState() *state {
	return &state{
		products:  make(map[int64]domain.Product),
		suppliers: make(map[int64]domain.Supplier),
		orders:    make(map[int64]domain.Order),
		items:     make(map[int64]domain.OrderItem),
		shipments: make(map[int64]domain.Shipment),
		records:   make(map[int64]domain.SupplyRecord),
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *state) clone() *state {
	return &state{
		products:     cloneMap(s.products),
		suppliers:    cloneMap(s.suppliers),
		orders:       cloneMap(s.orders),
		items:        cloneMap(s.items),
		shipments:    cloneMap(s.shipments),
		records:      cloneMap(s.records),
		lastItemID:   s.lastItemID,
		lastRecordID: s.lastRecordID,
		version:      s.version,
	}
}

// Gateway is an in-memory record store.
type Gateway struct {
	mu        sync.Mutex
	st        *state
	txTimeout time.Duration
}

// NewGateway creates an empty store. Every transactional unit is bounded by
// txTimeout; zero means no bound.
func NewGateway(txTimeout time.Duration) *Gateway {
	return &Gateway{st: newState(), txTimeout: txTimeout}
}

// Queries returns record operations that each lock the store for their own
// duration.
func (g *Gateway) Queries() repository.Queries {
	return &Queries{g: g}
}

// WithinTx runs fn against a copy of the store and installs the copy only
// when fn succeeds before the deadline.
func (g *Gateway) WithinTx(ctx context.Context, unit string, fn repository.TxFunc) error {
	if g.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.txTimeout)
		defer cancel()
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return apperrors.TxAborted(unit, err)
	}

	work := g.st.clone()
	if err := fn(ctx, &Queries{st: work}); err != nil {
		return repository.AbortError(unit, err)
	}
	if err := ctx.Err(); err != nil {
		return apperrors.TxAborted(unit, err)
	}

	g.st = work
	return nil
}
