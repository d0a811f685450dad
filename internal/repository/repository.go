package repository

import (
	"context"

	"github.com/utafrali/WarehouseGo/internal/domain"
	apperrors "github.com/utafrali/WarehouseGo/pkg/errors"
	"github.com/utafrali/WarehouseGo/pkg/pagination"
)

// Table names a table whose ids are assigned as MAX(id)+1.
type Table string

// Sequentially numbered tables.
const (
	TableProducts  Table = "products"
	TableOrders    Table = "orders"
	TableShipments Table = "shipments"
	TableSuppliers Table = "suppliers"
)

// IDColumn returns the primary key column of t.
func (t Table) IDColumn() string {
	switch t {
	case TableProducts:
		return "product_id"
	case TableOrders:
		return "order_id"
	case TableShipments:
		return "shipment_id"
	case TableSuppliers:
		return "supplier_id"
	default:
		return ""
	}
}

// ProductStore persists products and their stock.
type ProductStore interface {
	// GetProduct returns a NotFound error when the product is absent.
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)

	// LockProducts row-locks the given products in ascending id order for the
	// rest of the transaction. Absent ids are missing from the result.
	LockProducts(ctx context.Context, ids []int64) (map[int64]*domain.Product, error)

	ListProducts(ctx context.Context, page pagination.Params) ([]domain.Product, int, error)

	// InsertProduct returns an AlreadyExists error on a duplicate id.
	InsertProduct(ctx context.Context, p *domain.Product) (*domain.Product, error)

	// AdjustStock adds delta to the stock quantity and returns the updated row.
	AdjustStock(ctx context.Context, id int64, delta int) (*domain.Product, error)

	SetSupplierName(ctx context.Context, id int64, name string) (*domain.Product, error)

	// DeleteProduct removes the product along with its order items and supply
	// records. Orders that lost items get a new version.
	DeleteProduct(ctx context.Context, id int64) (*Removal, error)
}

// Removal describes a deleted product.
type Removal struct {
	// Version is drawn from the row version sequence after the product row
	// is gone, so it is later than any version the product carried.
	Version int64

	// Orders maps every order that lost items to its new version.
	Orders map[int64]int64
}

// OrderStore persists orders and their items.
type OrderStore interface {
	// GetOrder returns the order with its items, each carrying the current
	// product name.
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)

	// LockOrder is GetOrder with the order row locked for update.
	LockOrder(ctx context.Context, id int64) (*domain.Order, error)

	// InsertOrder writes the header and every item, returning the order with
	// item ids filled in.
	InsertOrder(ctx context.Context, o *domain.Order) (*domain.Order, error)

	// UpdateOrderStatus sets the status and returns the order's new version.
	UpdateOrderStatus(ctx context.Context, id int64, status domain.Status) (int64, error)

	// ListOrders returns order headers, newest first.
	ListOrders(ctx context.Context, page pagination.Params) ([]domain.Order, int, error)
}

// ShipmentStore persists shipments.
type ShipmentStore interface {
	InsertShipment(ctx context.Context, s *domain.Shipment) error
	GetShipment(ctx context.Context, id int64) (*domain.ShipmentDetails, error)
	LockShipment(ctx context.Context, id int64) (*domain.Shipment, error)
	UpdateShipmentStatus(ctx context.Context, id int64, status domain.Status) error

	// ListShipments returns shipments joined with their orders, newest first.
	ListShipments(ctx context.Context, page pagination.Params) ([]domain.ShipmentDetails, int, error)
}

// SupplierStore persists suppliers and the supply log.
type SupplierStore interface {
	InsertSupplier(ctx context.Context, s *domain.Supplier) error
	GetSupplier(ctx context.Context, id int64) (*domain.Supplier, error)
	InsertSupplyRecord(ctx context.Context, r *domain.SupplyRecord) (*domain.SupplyRecord, error)

	// ListSupplyRecords returns the supply log, newest first.
	ListSupplyRecords(ctx context.Context, page pagination.Params) ([]domain.SupplyRecord, int, error)
}

// Queries is every record operation. Inside WithinTx all of them share one
// transaction.
type Queries interface {
	ProductStore
	OrderStore
	ShipmentStore
	SupplierStore

	// NextID returns MAX(id)+1 for table, serialized against concurrent
	// callers until the transaction ends.
	NextID(ctx context.Context, table Table) (int64, error)
}

// TxFunc is the body of a transactional unit.
type TxFunc func(ctx context.Context, q Queries) error

// Gateway is the record store.
type Gateway interface {
	// WithinTx runs fn in one transaction named unit. The transaction commits
	// when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, unit string, fn TxFunc) error

	// Queries returns a non-transactional view for reads.
	Queries() Queries
}

// AbortError classifies a failed unit: classified domain errors are returned
// unchanged, anything else becomes TxAborted.
func AbortError(unit string, err error) error {
	if err == nil {
		return nil
	}
	if apperrors.IsDomain(err) {
		return err
	}
	return apperrors.TxAborted(unit, err)
}
