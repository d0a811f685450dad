package domain

import "time"

// Supplier restocks products.
type Supplier struct {
	ID      int64  `json:"supplier_id"`
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

// SupplyRecord is an append-only log entry of one delivery from a supplier.
// Names are snapshots taken when the delivery was recorded.
type SupplyRecord struct {
	ID           int64     `json:"record_id"`
	ProductID    int64     `json:"product_id"`
	ProductName  string    `json:"product_name"`
	Quantity     int       `json:"quantity"`
	SupplierName string    `json:"supplier_name"`
	SupplyDate   time.Time `json:"supply_date"`
}
