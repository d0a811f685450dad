package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/WarehouseGo/internal/cache"
	"github.com/utafrali/WarehouseGo/internal/domain"
	"github.com/utafrali/WarehouseGo/internal/repository"
	apperrors "github.com/utafrali/WarehouseGo/pkg/errors"
	"github.com/utafrali/WarehouseGo/pkg/pagination"
)

// ShipmentService creates shipments and drives their status. Shipping and
// delivering an order goes through OrderService so both rows change in one
// unit.
type ShipmentService struct {
	gw     repository.Gateway
	orders *OrderService
	mirror cache.Mirror
	events EventPublisher
	logger *slog.Logger
	now    func() time.Time
}

func NewShipmentService(
	gw repository.Gateway,
	orders *OrderService,
	mirror cache.Mirror,
	events EventPublisher,
	logger *slog.Logger,
) *ShipmentService {
	return &ShipmentService{
		gw:     gw,
		orders: orders,
		mirror: mirror,
		events: events,
		logger: logger,
		now:    utcNow,
	}
}

// CreateShipment ships a Pending order: a Shipped shipment is recorded and
// the order moves to Shipped.
func (s *ShipmentService) CreateShipment(ctx context.Context, orderID int64) (*domain.Shipment, error) {
	var (
		created *domain.Shipment
		order   *domain.Order
	)
	err := runUnit(ctx, s.gw, unitCreateShipment, func(ctx context.Context, q repository.Queries) error {
		o, err := q.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		switch o.Status {
		case domain.StatusCancelled:
			return apperrors.InvalidState(fmt.Sprintf("cannot ship a cancelled order (order %d)", orderID))
		case domain.StatusShipped:
			return apperrors.InvalidState(fmt.Sprintf("order %d has already been shipped", orderID))
		}

		order, err = s.orders.markShipped(ctx, q, orderID)
		if err != nil {
			return err
		}

		id, err := q.NextID(ctx, repository.TableShipments)
		if err != nil {
			return err
		}
		created = &domain.Shipment{
			ID:           id,
			OrderID:      orderID,
			ShipmentDate: s.now(),
			Status:       domain.StatusShipped,
		}
		return q.InsertShipment(ctx, created)
	})
	if err != nil {
		return nil, err
	}

	logSideEffect(ctx, s.logger, "failed to mirror order", s.mirror.PutOrder(ctx, order),
		slog.Int64("order_id", orderID))
	logSideEffect(ctx, s.logger, "failed to publish shipment.created event", s.events.ShipmentCreated(ctx, created),
		slog.Int64("shipment_id", created.ID))
	logSideEffect(ctx, s.logger, "failed to publish order.status_changed event",
		s.events.OrderStatusChanged(ctx, orderID, domain.StatusPending, domain.StatusShipped),
		slog.Int64("order_id", orderID))

	s.logger.InfoContext(ctx, "shipment created",
		slog.Int64("shipment_id", created.ID),
		slog.Int64("order_id", orderID),
	)
	return created, nil
}

// UpdateShipmentStatus sets the shipment's status from raw, matched
// case-insensitively. Any of the four statuses may be set; Delivered also
// delivers the order.
func (s *ShipmentService) UpdateShipmentStatus(ctx context.Context, shipmentID int64, raw string) (*domain.ShipmentDetails, error) {
	status, err := domain.ParseStatus(raw)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	var (
		details   *domain.ShipmentDetails
		previous  domain.Status
		delivered *domain.Order
		orderFrom domain.Status
	)
	err = runUnit(ctx, s.gw, unitUpdateShipmentStatus, func(ctx context.Context, q repository.Queries) error {
		delivered = nil

		sh, err := q.LockShipment(ctx, shipmentID)
		if err != nil {
			return err
		}
		previous = sh.Status

		if err := q.UpdateShipmentStatus(ctx, shipmentID, status); err != nil {
			return err
		}
		if status == domain.StatusDelivered {
			delivered, orderFrom, err = s.orders.markDelivered(ctx, q, sh.OrderID)
			if err != nil {
				return err
			}
		}

		details, err = q.GetShipment(ctx, shipmentID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if delivered != nil {
		logSideEffect(ctx, s.logger, "failed to mirror order", s.mirror.PutOrder(ctx, delivered),
			slog.Int64("order_id", delivered.ID))
		if orderFrom != domain.StatusDelivered {
			logSideEffect(ctx, s.logger, "failed to publish order.status_changed event",
				s.events.OrderStatusChanged(ctx, delivered.ID, orderFrom, domain.StatusDelivered),
				slog.Int64("order_id", delivered.ID))
		}
	}
	logSideEffect(ctx, s.logger, "failed to publish shipment.status_changed event",
		s.events.ShipmentStatusChanged(ctx, details, previous),
		slog.Int64("shipment_id", shipmentID))

	s.logger.InfoContext(ctx, "shipment status updated",
		slog.Int64("shipment_id", shipmentID),
		slog.String("from", previous.String()),
		slog.String("to", status.String()),
	)
	return details, nil
}

// GetShipment returns a shipment joined with its order.
func (s *ShipmentService) GetShipment(ctx context.Context, shipmentID int64) (*domain.ShipmentDetails, error) {
	return s.gw.Queries().GetShipment(ctx, shipmentID)
}

// ListShipments returns one page of shipments, newest first.
func (s *ShipmentService) ListShipments(ctx context.Context, page pagination.Params) ([]domain.ShipmentDetails, int, error) {
	shipments, total, err := s.gw.Queries().ListShipments(ctx, page)
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "list shipments")
	}
	return shipments, total, nil
}
