package event

import (
	"context"

	"github.com/utafrali/WarehouseGo/internal/domain"
)

// Discard drops every event. It is used when Kafka is disabled.
type Discard struct{}

func (Discard) StockChanged(context.Context, *domain.Product, int, string) error   { return nil }
func (Discard) LowStock(context.Context, *domain.Product, int) error               { return nil }
func (Discard) OrderPlaced(context.Context, *domain.Order) error                   { return nil }
func (Discard) OrderCancelled(context.Context, *domain.Order, map[int64]int) error { return nil }
func (Discard) OrderStatusChanged(context.Context, int64, domain.Status, domain.Status) error {
	return nil
}
func (Discard) ShipmentCreated(context.Context, *domain.Shipment) error { return nil }
func (Discard) ShipmentStatusChanged(context.Context, *domain.ShipmentDetails, domain.Status) error {
	return nil
}
func (Discard) SupplyRecorded(context.Context, *domain.SupplyRecord, int64) error { return nil }
