package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Shipment tracks delivery of exactly one order.
type Shipment struct {
	ID           int64     `json:"shipment_id"`
	OrderID      int64     `json:"order_id"`
	ShipmentDate time.Time `json:"shipment_date"`
	Status       Status    `json:"status"`
}

// ShipmentDetails is a shipment joined with its order.
type ShipmentDetails struct {
	Shipment
	OrderDate   time.Time       `json:"order_date"`
	OrderStatus Status          `json:"order_status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}
