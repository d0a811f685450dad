package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/WarehouseGo/internal/domain"
	"github.com/utafrali/WarehouseGo/internal/repository"
	apperrors "github.com/utafrali/WarehouseGo/pkg/errors"
)

// EventPublisher receives domain events after a unit commits. Failures are
// logged by the caller and never undo the commit.
type EventPublisher interface {
	StockChanged(ctx context.Context, p *domain.Product, delta int, reason string) error
	LowStock(ctx context.Context, p *domain.Product, threshold int) error
	OrderPlaced(ctx context.Context, o *domain.Order) error
	OrderCancelled(ctx context.Context, o *domain.Order, restored map[int64]int) error
	OrderStatusChanged(ctx context.Context, orderID int64, from, to domain.Status) error
	ShipmentCreated(ctx context.Context, s *domain.Shipment) error
	ShipmentStatusChanged(ctx context.Context, s *domain.ShipmentDetails, from domain.Status) error
	SupplyRecorded(ctx context.Context, r *domain.SupplyRecord, supplierID int64) error
}

// Transactional unit names.
const (
	unitAddProduct           = "add_product"
	unitAdjustStock          = "adjust_stock"
	unitRemoveProduct        = "remove_product"
	unitPlaceOrder           = "place_order"
	unitCancelOrder          = "cancel_order"
	unitCreateShipment       = "create_shipment"
	unitUpdateShipmentStatus = "update_shipment_status"
	unitRegisterSupplier     = "register_supplier"
	unitSupply               = "supply"
)

var (
	unitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warehouse_transactions_total",
			Help: "Transactional units by outcome (committed, rejected, aborted)",
		},
		[]string{"unit", "outcome"},
	)

	unitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warehouse_transaction_duration_seconds",
			Help:    "Duration of transactional units in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"unit"},
	)

	stockUnitsMoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warehouse_stock_units_moved_total",
			Help: "Absolute stock units moved by committed units",
		},
		[]string{"reason"},
	)
)

func outcome(err error) string {
	switch {
	case err == nil:
		return "committed"
	case errors.Is(err, apperrors.ErrTxAborted):
		return "aborted"
	default:
		return "rejected"
	}
}

// runUnit executes fn as one transactional unit and records its outcome.
func runUnit(ctx context.Context, gw repository.Gateway, unit string, fn repository.TxFunc) error {
	start := time.Now()
	err := gw.WithinTx(ctx, unit, fn)
	unitDuration.WithLabelValues(unit).Observe(time.Since(start).Seconds())
	unitsTotal.WithLabelValues(unit, outcome(err)).Inc()
	return err
}

func utcNow() time.Time {
	return time.Now().UTC()
}

func logSideEffect(ctx context.Context, logger *slog.Logger, msg string, err error, attrs ...any) {
	if err == nil {
		return
	}
	logger.ErrorContext(ctx, msg, append(attrs, slog.String("error", err.Error()))...)
}
