package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/utafrali/WarehouseGo/internal/cache"
	"github.com/utafrali/WarehouseGo/internal/domain"
	"github.com/utafrali/WarehouseGo/internal/repository"
	apperrors "github.com/utafrali/WarehouseGo/pkg/errors"
	"github.com/utafrali/WarehouseGo/pkg/pagination"
)

// CancelResult is a cancelled order and the stock returned per product.
type CancelResult struct {
	Order    *domain.Order `json:"order"`
	Restored map[int64]int `json:"restored"`
}

// OrderService owns the order lifecycle.
type OrderService struct {
	gw     repository.Gateway
	ledger *StockLedger
	mirror cache.Mirror
	events EventPublisher
	logger *slog.Logger
	now    func() time.Time
}

// NewOrderService creates an order service that moves stock through ledger.
func NewOrderService(
	gw repository.Gateway,
	ledger *StockLedger,
	mirror cache.Mirror,
	events EventPublisher,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		gw:     gw,
		ledger: ledger,
		mirror: mirror,
		events: events,
		logger: logger,
		now:    utcNow,
	}
}

func validateLines(lines []domain.OrderLine) error {
	if len(lines) == 0 {
		return apperrors.InvalidInput("order must contain at least one item")
	}
	for _, l := range lines {
		if l.ProductID <= 0 {
			return apperrors.InvalidInput(fmt.Sprintf("invalid product id %d", l.ProductID))
		}
		if l.Quantity <= 0 {
			return apperrors.InvalidInput(fmt.Sprintf("quantity for product %d must be positive", l.ProductID))
		}
	}
	return nil
}

// PlaceOrder reserves stock for every line and records a Pending order in one
// unit. Lines naming the same product are merged and checked against the
// combined quantity. Either every line is reserved or nothing changes.
func (s *OrderService) PlaceOrder(ctx context.Context, lines []domain.OrderLine) (*domain.Order, error) {
	if err := validateLines(lines); err != nil {
		return nil, err
	}
	merged := domain.AggregateLines(lines)

	var (
		placed *domain.Order
		moves  []stockMove
	)
	err := runUnit(ctx, s.gw, unitPlaceOrder, func(ctx context.Context, q repository.Queries) error {
		moves = moves[:0]

		locked, err := s.ledger.lockAvailable(ctx, q, merged)
		if err != nil {
			return err
		}

		id, err := q.NextID(ctx, repository.TableOrders)
		if err != nil {
			return err
		}

		items := make([]domain.OrderItem, 0, len(merged))
		for _, l := range merged {
			items = append(items, domain.NewOrderItem(locked[l.ProductID], l.Quantity))
		}

		qty := make(map[int64]int, len(merged))
		for _, l := range merged {
			qty[l.ProductID] = l.Quantity
		}
		for _, pid := range domain.SortedProductIDs(merged) {
			p, err := s.ledger.adjust(ctx, q, pid, -qty[pid])
			if err != nil {
				return err
			}
			moves = append(moves, stockMove{product: *p, delta: -qty[pid]})
		}

		placed, err = q.InsertOrder(ctx, &domain.Order{
			ID:          id,
			OrderDate:   s.now(),
			Status:      domain.StatusPending,
			TotalAmount: domain.SumItems(items),
			Items:       items,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.ledger.committed(ctx, ReasonOrderPlaced, moves)
	logSideEffect(ctx, s.logger, "failed to mirror order", s.mirror.PutOrder(ctx, placed),
		slog.Int64("order_id", placed.ID))
	logSideEffect(ctx, s.logger, "failed to publish order.placed event", s.events.OrderPlaced(ctx, placed),
		slog.Int64("order_id", placed.ID))

	s.logger.InfoContext(ctx, "order placed",
		slog.Int64("order_id", placed.ID),
		slog.Int("items", len(placed.Items)),
		slog.String("total_amount", placed.TotalAmount.StringFixed(2)),
	)
	return placed, nil
}

// CancelOrder cancels a Pending order and returns every item's quantity to
// stock in one unit.
func (s *OrderService) CancelOrder(ctx context.Context, orderID int64) (*CancelResult, error) {
	var (
		result *CancelResult
		moves  []stockMove
	)
	err := runUnit(ctx, s.gw, unitCancelOrder, func(ctx context.Context, q repository.Queries) error {
		moves = moves[:0]

		o, err := q.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		switch o.Status {
		case domain.StatusCancelled:
			return apperrors.InvalidState(fmt.Sprintf("order %d is already cancelled", orderID))
		case domain.StatusShipped:
			return apperrors.InvalidState(fmt.Sprintf("cannot cancel shipped order %d", orderID))
		case domain.StatusDelivered:
			return apperrors.InvalidState(fmt.Sprintf("cannot cancel delivered order %d", orderID))
		}

		restored := o.Quantities()
		if len(restored) == 0 {
			return apperrors.TxAborted(unitCancelOrder, fmt.Errorf("order %d has no items to restore", orderID))
		}

		ids := make([]int64, 0, len(restored))
		for pid := range restored {
			ids = append(ids, pid)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		locked, err := q.LockProducts(ctx, ids)
		if err != nil {
			return err
		}
		for _, pid := range ids {
			if _, ok := locked[pid]; !ok {
				return apperrors.TxAborted(unitCancelOrder, fmt.Errorf("product %d of order %d no longer exists", pid, orderID))
			}
			p, err := s.ledger.adjust(ctx, q, pid, restored[pid])
			if err != nil {
				if errors.Is(err, apperrors.ErrNotFound) {
					return apperrors.TxAborted(unitCancelOrder, err)
				}
				return err
			}
			moves = append(moves, stockMove{product: *p, delta: restored[pid]})
		}

		version, err := q.UpdateOrderStatus(ctx, orderID, domain.StatusCancelled)
		if err != nil {
			return err
		}
		o.Status = domain.StatusCancelled
		o.Version = version
		result = &CancelResult{Order: o, Restored: restored}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.ledger.committed(ctx, ReasonOrderCancelled, moves)
	logSideEffect(ctx, s.logger, "failed to mirror order", s.mirror.PutOrder(ctx, result.Order),
		slog.Int64("order_id", orderID))
	logSideEffect(ctx, s.logger, "failed to publish order.cancelled event",
		s.events.OrderCancelled(ctx, result.Order, result.Restored),
		slog.Int64("order_id", orderID))

	s.logger.InfoContext(ctx, "order cancelled",
		slog.Int64("order_id", orderID),
		slog.Int("products_restored", len(result.Restored)),
	)
	return result, nil
}

// markShipped moves a Pending order to Shipped inside the caller's unit.
func (s *OrderService) markShipped(ctx context.Context, q repository.Queries, orderID int64) (*domain.Order, error) {
	o, err := q.LockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanTransitionTo(domain.StatusShipped) {
		return nil, apperrors.InvalidState(fmt.Sprintf("order %d cannot be shipped from status %s", orderID, o.Status))
	}
	version, err := q.UpdateOrderStatus(ctx, orderID, domain.StatusShipped)
	if err != nil {
		return nil, err
	}
	o.Status = domain.StatusShipped
	o.Version = version
	return o, nil
}

// markDelivered moves a Shipped order to Delivered inside the caller's unit
// and reports the status it came from. A Delivered order stays Delivered.
func (s *OrderService) markDelivered(ctx context.Context, q repository.Queries, orderID int64) (*domain.Order, domain.Status, error) {
	o, err := q.LockOrder(ctx, orderID)
	if err != nil {
		return nil, "", err
	}
	from := o.Status
	switch {
	case from == domain.StatusDelivered:
		return o, from, nil
	case !from.CanTransitionTo(domain.StatusDelivered):
		return nil, "", apperrors.InvalidState(fmt.Sprintf("order %d cannot be delivered from status %s", orderID, from))
	}
	version, err := q.UpdateOrderStatus(ctx, orderID, domain.StatusDelivered)
	if err != nil {
		return nil, "", err
	}
	o.Status = domain.StatusDelivered
	o.Version = version
	return o, from, nil
}

// GetOrder returns an order with its items, preferring the mirror.
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	o, ok, err := s.mirror.Order(ctx, orderID)
	if err != nil {
		s.logger.WarnContext(ctx, "mirror read failed, falling back to store",
			slog.Int64("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}
	if ok {
		return o, nil
	}

	o, err = s.gw.Queries().GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	logSideEffect(ctx, s.logger, "failed to mirror order", s.mirror.PutOrder(ctx, o),
		slog.Int64("order_id", orderID))
	return o, nil
}

// TrackOrder describes the order's current status.
func (s *OrderService) TrackOrder(ctx context.Context, orderID int64) (string, error) {
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Order %d is currently %s", o.ID, o.Status), nil
}

// ListOrders returns one page of order headers, newest first.
func (s *OrderService) ListOrders(ctx context.Context, page pagination.Params) ([]domain.Order, int, error) {
	orders, total, err := s.gw.Queries().ListOrders(ctx, page)
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "list orders")
	}
	return orders, total, nil
}
