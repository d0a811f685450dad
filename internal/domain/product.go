package domain

import (
	"github.com/shopspring/decimal"
)

// Product is a catalog entry together with its on-hand stock. Version grows
// with every committed change to the row.
type Product struct {
	ID            int64           `json:"product_id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	SupplierName  *string         `json:"supplier_name,omitempty"`
	Version       int64           `json:"version"`
}

// HasStock reports whether at least quantity units are on hand.
func (p *Product) HasStock(quantity int) bool {
	return p.StockQuantity >= quantity
}

// LineTotal returns the frozen price of quantity units at the current price.
func (p *Product) LineTotal(quantity int) decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(quantity)))
}
