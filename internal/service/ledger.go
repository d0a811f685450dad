package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/utafrali/WarehouseGo/internal/cache"
	"github.com/utafrali/WarehouseGo/internal/domain"
	"github.com/utafrali/WarehouseGo/internal/repository"
	apperrors "github.com/utafrali/WarehouseGo/pkg/errors"
	"github.com/utafrali/WarehouseGo/pkg/pagination"
)

// Stock movement reasons.
const (
	ReasonAdjustment     = "adjustment"
	ReasonOrderPlaced    = "order_placed"
	ReasonOrderCancelled = "order_cancelled"
	ReasonSupply         = "supply"
)

// StockLedger owns per-product stock quantities.
type StockLedger struct {
	gw                repository.Gateway
	mirror            cache.Mirror
	events            EventPublisher
	logger            *slog.Logger
	lowStockThreshold int
}

// NewStockLedger creates a stock ledger. A committed decrement that leaves a
// product at or below lowStockThreshold publishes a low-stock event; a
// negative threshold disables the signal.
func NewStockLedger(
	gw repository.Gateway,
	mirror cache.Mirror,
	events EventPublisher,
	logger *slog.Logger,
	lowStockThreshold int,
) *StockLedger {
	return &StockLedger{
		gw:                gw,
		mirror:            mirror,
		events:            events,
		logger:            logger,
		lowStockThreshold: lowStockThreshold,
	}
}

// stockMove is one committed stock change.
type stockMove struct {
	product domain.Product
	delta   int
}

// adjust adds delta to the product's stock inside a unit. It does not check
// availability; callers issuing a negative delta check first.
func (l *StockLedger) adjust(ctx context.Context, q repository.Queries, productID int64, delta int) (*domain.Product, error) {
	return q.AdjustStock(ctx, productID, delta)
}

// lockAvailable locks the products and verifies each can cover its
// requested quantity. Every requested product must exist.
func (l *StockLedger) lockAvailable(ctx context.Context, q repository.Queries, lines []domain.OrderLine) (map[int64]*domain.Product, error) {
	locked, err := q.LockProducts(ctx, domain.SortedProductIDs(lines))
	if err != nil {
		return nil, err
	}
	for _, id := range domain.SortedProductIDs(lines) {
		if _, ok := locked[id]; !ok {
			return nil, apperrors.NotFound("product", id)
		}
	}
	for _, line := range lines {
		p := locked[line.ProductID]
		if !p.HasStock(line.Quantity) {
			return nil, apperrors.InsufficientStock(p.ID, line.Quantity, p.StockQuantity)
		}
	}
	return locked, nil
}

// committed mirrors the committed rows and publishes stock events.
func (l *StockLedger) committed(ctx context.Context, reason string, moves []stockMove) {
	if len(moves) == 0 {
		return
	}

	products := make([]domain.Product, 0, len(moves))
	for _, m := range moves {
		products = append(products, m.product)
	}
	logSideEffect(ctx, l.logger, "failed to mirror products", l.mirror.PutProducts(ctx, products...),
		slog.String("reason", reason))

	for _, m := range moves {
		p := m.product
		moved := m.delta
		if moved < 0 {
			moved = -moved
		}
		stockUnitsMoved.WithLabelValues(reason).Add(float64(moved))

		logSideEffect(ctx, l.logger, "failed to publish stock.changed event",
			l.events.StockChanged(ctx, &p, m.delta, reason),
			slog.Int64("product_id", p.ID))

		if m.delta < 0 && l.lowStockThreshold >= 0 && p.StockQuantity <= l.lowStockThreshold {
			logSideEffect(ctx, l.logger, "failed to publish stock.low event",
				l.events.LowStock(ctx, &p, l.lowStockThreshold),
				slog.Int64("product_id", p.ID))
			l.logger.WarnContext(ctx, "product stock low",
				slog.Int64("product_id", p.ID),
				slog.Int("stock_quantity", p.StockQuantity),
				slog.Int("threshold", l.lowStockThreshold),
			)
		}
	}
}

func validateProduct(p *domain.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	switch {
	case p.ID < 0:
		return apperrors.InvalidInput("product_id must not be negative")
	case p.Name == "":
		return apperrors.InvalidInput("name is required")
	case p.Price.IsNegative():
		return apperrors.InvalidInput("price must not be negative")
	case !p.Price.Equal(p.Price.Round(2)):
		return apperrors.InvalidInput("price must have at most two decimal places")
	case p.StockQuantity < 0:
		return apperrors.InvalidInput("stock_quantity must not be negative")
	}
	return nil
}

// AddProduct creates a product. A zero id is replaced with the next free id;
// an id already in use is rejected.
func (l *StockLedger) AddProduct(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}

	var created *domain.Product
	err := runUnit(ctx, l.gw, unitAddProduct, func(ctx context.Context, q repository.Queries) error {
		row := *p
		if row.ID == 0 {
			id, err := q.NextID(ctx, repository.TableProducts)
			if err != nil {
				return err
			}
			row.ID = id
		}
		var err error
		created, err = q.InsertProduct(ctx, &row)
		return err
	})
	if err != nil {
		return nil, err
	}

	logSideEffect(ctx, l.logger, "failed to mirror product", l.mirror.PutProducts(ctx, *created),
		slog.Int64("product_id", created.ID))

	l.logger.InfoContext(ctx, "product added",
		slog.Int64("product_id", created.ID),
		slog.String("name", created.Name),
		slog.Int("stock_quantity", created.StockQuantity),
	)
	return created, nil
}

// AdjustStock applies a manual stock correction. A negative delta is checked
// against the locked stock first.
func (l *StockLedger) AdjustStock(ctx context.Context, productID int64, delta int) (*domain.Product, error) {
	if delta == 0 {
		return nil, apperrors.InvalidInput("delta must not be zero")
	}

	var updated *domain.Product
	err := runUnit(ctx, l.gw, unitAdjustStock, func(ctx context.Context, q repository.Queries) error {
		if delta < 0 {
			if _, err := l.lockAvailable(ctx, q, []domain.OrderLine{{ProductID: productID, Quantity: -delta}}); err != nil {
				return err
			}
		}
		var err error
		updated, err = l.adjust(ctx, q, productID, delta)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.committed(ctx, ReasonAdjustment, []stockMove{{product: *updated, delta: delta}})
	l.logger.InfoContext(ctx, "stock adjusted",
		slog.Int64("product_id", productID),
		slog.Int("delta", delta),
		slog.Int("stock_quantity", updated.StockQuantity),
	)
	return updated, nil
}

// CheckAvailable reports whether the product exists and has at least
// quantity units on hand.
func (l *StockLedger) CheckAvailable(ctx context.Context, productID int64, quantity int) (bool, error) {
	if quantity < 0 {
		return false, apperrors.InvalidInput("quantity must not be negative")
	}
	p, err := l.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return p.HasStock(quantity), nil
}

// GetProduct returns a product, preferring the mirror.
func (l *StockLedger) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	p, ok, err := l.mirror.Product(ctx, id)
	if err != nil {
		l.logger.WarnContext(ctx, "mirror read failed, falling back to store",
			slog.Int64("product_id", id),
			slog.String("error", err.Error()),
		)
	}
	if ok {
		return p, nil
	}

	p, err = l.gw.Queries().GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	logSideEffect(ctx, l.logger, "failed to mirror product", l.mirror.PutProducts(ctx, *p),
		slog.Int64("product_id", id))
	return p, nil
}

// ListProducts returns one page of products.
func (l *StockLedger) ListProducts(ctx context.Context, page pagination.Params) ([]domain.Product, int, error) {
	products, total, err := l.gw.Queries().ListProducts(ctx, page)
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "list products")
	}
	return products, total, nil
}

// Remove deletes a product together with its order items and supply
// records. Orders that lost items are dropped from the mirror.
func (l *StockLedger) Remove(ctx context.Context, productID int64) error {
	var removal *repository.Removal
	err := runUnit(ctx, l.gw, unitRemoveProduct, func(ctx context.Context, q repository.Queries) error {
		var err error
		removal, err = q.DeleteProduct(ctx, productID)
		return err
	})
	if err != nil {
		return err
	}

	logSideEffect(ctx, l.logger, "failed to drop product from mirror",
		l.mirror.DeleteProduct(ctx, productID, removal.Version),
		slog.Int64("product_id", productID))
	for id, version := range removal.Orders {
		logSideEffect(ctx, l.logger, "failed to drop order from mirror", l.mirror.DeleteOrder(ctx, id, version),
			slog.Int64("order_id", id))
	}

	l.logger.InfoContext(ctx, "product removed",
		slog.Int64("product_id", productID),
		slog.Int("orders_affected", len(removal.Orders)),
	)
	return nil
}
