package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/WarehouseGo/internal/domain"
	pkgkafka "github.com/utafrali/WarehouseGo/pkg/kafka"
	"github.com/utafrali/WarehouseGo/pkg/logger"
)

// --- Mock publisher ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, topic string, env *pkgkafka.Envelope) error {
	args := m.Called(ctx, topic, env)
	return args.Error(0)
}

func newTestProducer(pub publisher) *Producer {
	return &Producer{kafka: pub, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// captured returns the envelope published on topic as a consumer would see
// it after decoding the message value.
func captured(t *testing.T, pub *mockPublisher, topic string) *pkgkafka.Envelope {
	t.Helper()
	for _, call := range pub.Calls {
		if call.Arguments.String(1) != topic {
			continue
		}
		value, err := call.Arguments.Get(2).(*pkgkafka.Envelope).Encode()
		require.NoError(t, err)
		env, err := pkgkafka.Decode(value)
		require.NoError(t, err)
		return env
	}
	require.Failf(t, "event not published", "topic %s", topic)
	return nil
}

func TestProducer_OrderPlaced(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, TopicOrderPlaced, mock.Anything).Return(nil)
	p := newTestProducer(pub)

	ctx := logger.WithOperatorID(logger.WithCorrelationID(context.Background(), "corr-1"), "clerk-9")
	o := &domain.Order{
		ID:          12,
		OrderDate:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Status:      domain.StatusPending,
		TotalAmount: decimal.NewFromInt(30),
		Items:       []domain.OrderItem{{ProductID: 1, Quantity: 3, Price: decimal.NewFromInt(30)}},
		Version:     40,
	}
	require.NoError(t, p.OrderPlaced(ctx, o))

	ev := captured(t, pub, TopicOrderPlaced)
	assert.Equal(t, pkgkafka.Aggregate{Type: AggregateOrder, ID: "12", Version: 40}, ev.Aggregate)
	assert.Equal(t, TopicOrderPlaced, ev.Type)
	assert.Equal(t, SourceWarehouse, ev.Source)
	assert.Equal(t, "corr-1", ev.CorrelationID)
	assert.Equal(t, "clerk-9", ev.Metadata["operator_id"])

	var data OrderPlacedData
	require.NoError(t, ev.DecodePayload(&data))
	assert.Equal(t, int64(12), data.OrderID)
	require.Len(t, data.Items, 1)
	assert.True(t, decimal.NewFromInt(30).Equal(data.TotalAmount))
	pub.AssertExpectations(t)
}

func TestProducer_OrderCancelled(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, TopicOrderCancelled, mock.Anything).Return(nil)

	require.NoError(t, newTestProducer(pub).OrderCancelled(context.Background(), &domain.Order{ID: 3}, map[int64]int{1: 3, 2: 1}))

	var data OrderCancelledData
	require.NoError(t, captured(t, pub, TopicOrderCancelled).DecodePayload(&data))
	assert.Equal(t, map[int64]int{1: 3, 2: 1}, data.Restored)
}

func TestProducer_StockEvents(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(nil)
	p := newTestProducer(pub)
	ctx := context.Background()

	product := &domain.Product{ID: 4, Name: "Bolt", StockQuantity: 2, Version: 17}
	require.NoError(t, p.StockChanged(ctx, product, -3, "order"))
	require.NoError(t, p.LowStock(ctx, product, 5))

	var changed StockChangedData
	require.NoError(t, captured(t, pub, TopicStockChanged).DecodePayload(&changed))
	assert.Equal(t, StockChangedData{ProductID: 4, Delta: -3, StockQuantity: 2, Reason: "order"}, changed)

	lowEvent := captured(t, pub, TopicStockLow)
	assert.Equal(t, int64(17), lowEvent.Aggregate.Version)
	var low StockLowData
	require.NoError(t, lowEvent.DecodePayload(&low))
	assert.Equal(t, 5, low.Threshold)
	assert.Equal(t, "Bolt", low.Name)
}

func TestProducer_ShipmentAndSupplyEvents(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(nil)
	p := newTestProducer(pub)
	ctx := context.Background()

	s := domain.Shipment{ID: 1, OrderID: 3, Status: domain.StatusDelivered}
	require.NoError(t, p.ShipmentCreated(ctx, &s))
	require.NoError(t, p.ShipmentStatusChanged(ctx, &domain.ShipmentDetails{Shipment: s, OrderStatus: domain.StatusDelivered}, domain.StatusShipped))
	require.NoError(t, p.OrderStatusChanged(ctx, 3, domain.StatusShipped, domain.StatusDelivered))
	require.NoError(t, p.SupplyRecorded(ctx, &domain.SupplyRecord{ID: 8, ProductID: 1, Quantity: 20, SupplierName: "Acme"}, 2))

	var status ShipmentStatusChangedData
	require.NoError(t, captured(t, pub, TopicShipmentStatusChanged).DecodePayload(&status))
	assert.Equal(t, "Shipped", status.From)
	assert.Equal(t, "Delivered", status.To)
	assert.Equal(t, "Delivered", status.OrderStatus)

	var supply SupplyRecordedData
	ev := captured(t, pub, TopicSupplyRecorded)
	require.NoError(t, ev.DecodePayload(&supply))
	assert.Equal(t, "1", ev.Aggregate.ID)
	assert.Zero(t, ev.Aggregate.Version)
	assert.Equal(t, int64(2), supply.SupplierID)

	pub.AssertNumberOfCalls(t, "Publish", 4)
}

func TestProducer_PublishError(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, TopicShipmentCreated, mock.Anything).Return(errors.New("broker down"))

	err := newTestProducer(pub).ShipmentCreated(context.Background(), &domain.Shipment{ID: 1})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish warehouse.shipment.created event")
}

func TestProducer_NoCorrelationLeavesEnvelopeBare(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, TopicOrderStatusChanged, mock.Anything).Return(nil)

	require.NoError(t, newTestProducer(pub).OrderStatusChanged(context.Background(), 5, domain.StatusPending, domain.StatusShipped))

	ev := captured(t, pub, TopicOrderStatusChanged)
	assert.Empty(t, ev.CorrelationID)
	assert.Nil(t, ev.Metadata)
	var data OrderStatusChangedData
	require.NoError(t, ev.DecodePayload(&data))
	assert.Equal(t, OrderStatusChangedData{OrderID: 5, From: "Pending", To: "Shipped"}, data)
}

func TestDiscard(t *testing.T) {
	var d Discard
	ctx := context.Background()
	assert.NoError(t, d.OrderPlaced(ctx, &domain.Order{}))
	assert.NoError(t, d.LowStock(ctx, &domain.Product{}, 1))
	assert.NoError(t, d.SupplyRecorded(ctx, &domain.SupplyRecord{}, 1))
}
