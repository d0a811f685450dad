package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/utafrali/WarehouseGo/internal/domain"
	pkgkafka "github.com/utafrali/WarehouseGo/pkg/kafka"
	"github.com/utafrali/WarehouseGo/pkg/logger"
)

// Kafka topics for warehouse domain events.
const (
	TopicStockChanged          = "warehouse.stock.changed"
	TopicStockLow              = "warehouse.stock.low"
	TopicOrderPlaced           = "warehouse.order.placed"
	TopicOrderCancelled        = "warehouse.order.cancelled"
	TopicOrderStatusChanged    = "warehouse.order.status_changed"
	TopicShipmentCreated       = "warehouse.shipment.created"
	TopicShipmentStatusChanged = "warehouse.shipment.status_changed"
	TopicSupplyRecorded        = "warehouse.supply.recorded"
)

// Aggregate types.
const (
	AggregateProduct  = "product"
	AggregateOrder    = "order"
	AggregateShipment = "shipment"
)

// SourceWarehouse identifies events emitted by this service.
const SourceWarehouse = "warehouse-service"

// StockChangedData is the payload of warehouse.stock.changed.
type StockChangedData struct {
	ProductID     int64  `json:"product_id"`
	Delta         int    `json:"delta"`
	StockQuantity int    `json:"stock_quantity"`
	Reason        string `json:"reason"`
}

// StockLowData is the payload of warehouse.stock.low.
type StockLowData struct {
	ProductID     int64  `json:"product_id"`
	Name          string `json:"name"`
	StockQuantity int    `json:"stock_quantity"`
	Threshold     int    `json:"threshold"`
}

// OrderLineData is one line of an order payload.
type OrderLineData struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// OrderPlacedData is the payload of warehouse.order.placed.
type OrderPlacedData struct {
	OrderID     int64           `json:"order_id"`
	OrderDate   time.Time       `json:"order_date"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Items       []OrderLineData `json:"items"`
}

// OrderCancelledData is the payload of warehouse.order.cancelled.
type OrderCancelledData struct {
	OrderID  int64         `json:"order_id"`
	Restored map[int64]int `json:"restored"`
}

// OrderStatusChangedData is the payload of warehouse.order.status_changed.
type OrderStatusChangedData struct {
	OrderID int64  `json:"order_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// ShipmentCreatedData is the payload of warehouse.shipment.created.
type ShipmentCreatedData struct {
	ShipmentID   int64     `json:"shipment_id"`
	OrderID      int64     `json:"order_id"`
	ShipmentDate time.Time `json:"shipment_date"`
}

// ShipmentStatusChangedData is the payload of warehouse.shipment.status_changed.
type ShipmentStatusChangedData struct {
	ShipmentID  int64  `json:"shipment_id"`
	OrderID     int64  `json:"order_id"`
	From        string `json:"from"`
	To          string `json:"to"`
	OrderStatus string `json:"order_status"`
}

// SupplyRecordedData is the payload of warehouse.supply.recorded.
type SupplyRecordedData struct {
	RecordID     int64     `json:"record_id"`
	SupplierID   int64     `json:"supplier_id"`
	SupplierName string    `json:"supplier_name"`
	ProductID    int64     `json:"product_id"`
	Quantity     int       `json:"quantity"`
	SupplyDate   time.Time `json:"supply_date"`
}

type publisher interface {
	Publish(ctx context.Context, topic string, env *pkgkafka.Envelope) error
}

// Producer publishes warehouse domain events to Kafka.
type Producer struct {
	kafka  publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

func aggregate(typ string, id, version int64) pkgkafka.Aggregate {
	return pkgkafka.Aggregate{Type: typ, ID: strconv.FormatInt(id, 10), Version: version}
}

func (p *Producer) publish(ctx context.Context, topic string, agg pkgkafka.Aggregate, data any) error {
	env, err := pkgkafka.NewEnvelope(topic, SourceWarehouse, agg, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	env.CorrelationID = logger.CorrelationIDFromContext(ctx)
	env.Annotate("operator_id", logger.OperatorIDFromContext(ctx))

	if err := p.kafka.Publish(ctx, topic, env); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", agg.ID),
	)
	return nil
}

// StockChanged publishes a stock movement with the committed quantity.
func (p *Producer) StockChanged(ctx context.Context, product *domain.Product, delta int, reason string) error {
	return p.publish(ctx, TopicStockChanged, aggregate(AggregateProduct, product.ID, product.Version), StockChangedData{
		ProductID:     product.ID,
		Delta:         delta,
		StockQuantity: product.StockQuantity,
		Reason:        reason,
	})
}

// LowStock signals that a product fell to or below threshold.
func (p *Producer) LowStock(ctx context.Context, product *domain.Product, threshold int) error {
	return p.publish(ctx, TopicStockLow, aggregate(AggregateProduct, product.ID, product.Version), StockLowData{
		ProductID:     product.ID,
		Name:          product.Name,
		StockQuantity: product.StockQuantity,
		Threshold:     threshold,
	})
}

// OrderPlaced publishes a newly placed order.
func (p *Producer) OrderPlaced(ctx context.Context, o *domain.Order) error {
	lines := make([]OrderLineData, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, OrderLineData{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price})
	}
	return p.publish(ctx, TopicOrderPlaced, aggregate(AggregateOrder, o.ID, o.Version), OrderPlacedData{
		OrderID:     o.ID,
		OrderDate:   o.OrderDate,
		TotalAmount: o.TotalAmount,
		Items:       lines,
	})
}

// OrderCancelled publishes a cancellation with the quantities returned to stock.
func (p *Producer) OrderCancelled(ctx context.Context, o *domain.Order, restored map[int64]int) error {
	return p.publish(ctx, TopicOrderCancelled, aggregate(AggregateOrder, o.ID, o.Version), OrderCancelledData{
		OrderID:  o.ID,
		Restored: restored,
	})
}

// OrderStatusChanged publishes a lifecycle transition other than cancellation.
func (p *Producer) OrderStatusChanged(ctx context.Context, orderID int64, from, to domain.Status) error {
	return p.publish(ctx, TopicOrderStatusChanged, aggregate(AggregateOrder, orderID, 0), OrderStatusChangedData{
		OrderID: orderID,
		From:    from.String(),
		To:      to.String(),
	})
}

// ShipmentCreated publishes a new shipment.
func (p *Producer) ShipmentCreated(ctx context.Context, s *domain.Shipment) error {
	return p.publish(ctx, TopicShipmentCreated, aggregate(AggregateShipment, s.ID, 0), ShipmentCreatedData{
		ShipmentID:   s.ID,
		OrderID:      s.OrderID,
		ShipmentDate: s.ShipmentDate,
	})
}

// ShipmentStatusChanged publishes a shipment status update.
func (p *Producer) ShipmentStatusChanged(ctx context.Context, s *domain.ShipmentDetails, from domain.Status) error {
	return p.publish(ctx, TopicShipmentStatusChanged, aggregate(AggregateShipment, s.ID, 0), ShipmentStatusChangedData{
		ShipmentID:  s.ID,
		OrderID:     s.OrderID,
		From:        from.String(),
		To:          s.Status.String(),
		OrderStatus: s.OrderStatus.String(),
	})
}

// SupplyRecorded publishes a supplier delivery.
func (p *Producer) SupplyRecorded(ctx context.Context, r *domain.SupplyRecord, supplierID int64) error {
	return p.publish(ctx, TopicSupplyRecorded, aggregate(AggregateProduct, r.ProductID, 0), SupplyRecordedData{
		RecordID:     r.ID,
		SupplierID:   supplierID,
		SupplierName: r.SupplierName,
		ProductID:    r.ProductID,
		Quantity:     r.Quantity,
		SupplyDate:   r.SupplyDate,
	})
}
