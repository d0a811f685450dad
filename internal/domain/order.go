package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Order is a customer order. TotalAmount is fixed when the order is placed.
// Version grows with every committed change to the order or its items.
type Order struct {
	ID          int64           `json:"order_id"`
	OrderDate   time.Time       `json:"order_date"`
	Status      Status          `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Items       []OrderItem     `json:"items"`
	Version     int64           `json:"version"`
}

// OrderItem is one line of an order. Price is unit price times quantity at
// the time the order was placed.
type OrderItem struct {
	ID          int64           `json:"item_id"`
	OrderID     int64           `json:"order_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// OrderLine is a requested (product, quantity) pair.
type OrderLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// NewOrderItem prices quantity units of p.
func NewOrderItem(p *Product, quantity int) OrderItem {
	return OrderItem{
		ProductID:   p.ID,
		ProductName: p.Name,
		Quantity:    quantity,
		Price:       p.LineTotal(quantity),
	}
}

// SumItems adds up item prices.
func SumItems(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Price)
	}
	return total
}

// Quantities sums item quantities per product.
func (o *Order) Quantities() map[int64]int {
	out := make(map[int64]int, len(o.Items))
	for _, it := range o.Items {
		out[it.ProductID] += it.Quantity
	}
	return out
}

// AggregateLines merges duplicate product lines, keeping first-seen order.
func AggregateLines(lines []OrderLine) []OrderLine {
	index := make(map[int64]int, len(lines))
	out := make([]OrderLine, 0, len(lines))
	for _, l := range lines {
		if i, ok := index[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out
}

// SortedProductIDs returns the distinct product ids of lines in ascending
// order, the order in which stock rows are locked.
func SortedProductIDs(lines []OrderLine) []int64 {
	seen := make(map[int64]struct{}, len(lines))
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		ids = append(ids, l.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
