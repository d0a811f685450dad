package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/utafrali/WarehouseGo/internal/domain"
	"github.com/utafrali/WarehouseGo/internal/repository"
	apperrors "github.com/utafrali/WarehouseGo/pkg/errors"
	"github.com/utafrali/WarehouseGo/pkg/pagination"
)

// Queries implements repository.Queries. Inside a transaction st is the
// unit's private copy and the store mutex is already held.
type Queries struct {
	g  *Gateway
	st *state
}

func (q *Queries) do(fn func(st *state) error) error {
	if q.st != nil {
		return fn(q.st)
	}
	q.g.mu.Lock()
	defer q.g.mu.Unlock()
	return fn(q.g.st)
}

func page[T any](all []T, params pagination.Params) ([]T, int) {
	lo, hi := pagination.Window(len(all), params)
	return append([]T(nil), all[lo:hi]...), len(all)
}

// NextID returns MAX(id)+1 for table.
func (q *Queries) NextID(_ context.Context, table repository.Table) (int64, error) {
	var next int64
	err := q.do(func(st *state) error {
		var ids []int64
		switch table {
		case repository.TableProducts:
			ids = keys(st.products)
		case repository.TableOrders:
			ids = keys(st.orders)
		case repository.TableShipments:
			ids = keys(st.shipments)
		case repository.TableSuppliers:
			ids = keys(st.suppliers)
		default:
			return fmt.Errorf("next id: unknown table %q", table)
		}
		for _, id := range ids {
			if id > next {
				next = id
			}
		}
		next++
		return nil
	})
	return next, err
}

func keys[V any](m map[int64]V) []int64 {
	out := make([]int64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// ---------------------------------------------------------------------------
// Products
// ---------------------------------------------------------------------------

func (q *Queries) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	var out domain.Product
	err := q.do(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return apperrors.NotFound("product", id)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (q *Queries) LockProducts(_ context.Context, ids []int64) (map[int64]*domain.Product, error) {
	out := make(map[int64]*domain.Product, len(ids))
	err := q.do(func(st *state) error {
		for _, id := range ids {
			if p, ok := st.products[id]; ok {
				p := p
				out[id] = &p
			}
		}
		return nil
	})
	return out, err
}

func (q *Queries) ListProducts(_ context.Context, params pagination.Params) ([]domain.Product, int, error) {
	var (
		out   []domain.Product
		total int
	)
	err := q.do(func(st *state) error {
		all := make([]domain.Product, 0, len(st.products))
		for _, p := range st.products {
			all = append(all, p)
		}
		sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
		out, total = page(all, params)
		return nil
	})
	return out, total, err
}

func (q *Queries) InsertProduct(_ context.Context, p *domain.Product) (*domain.Product, error) {
	created := *p
	err := q.do(func(st *state) error {
		if _, ok := st.products[p.ID]; ok {
			return apperrors.AlreadyExists("product", "id", p.ID)
		}
		if p.StockQuantity < 0 {
			return fmt.Errorf("insert product %d: stock_quantity must be non-negative", p.ID)
		}
		created.Version = st.nextVersion()
		st.products[p.ID] = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// AdjustStock adds delta and rejects a negative result the way the
// PostgreSQL CHECK constraint does.
func (q *Queries) AdjustStock(_ context.Context, id int64, delta int) (*domain.Product, error) {
	var out domain.Product
	err := q.do(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return apperrors.NotFound("product", id)
		}
		if p.StockQuantity+delta < 0 {
			return fmt.Errorf("adjust stock of product %d: quantity %d violates stock_quantity >= 0",
				id, p.StockQuantity+delta)
		}
		p.StockQuantity += delta
		p.Version = st.nextVersion()
		st.products[id] = p
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (q *Queries) SetSupplierName(_ context.Context, id int64, name string) (*domain.Product, error) {
	var out domain.Product
	err := q.do(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return apperrors.NotFound("product", id)
		}
		p.SupplierName = &name
		p.Version = st.nextVersion()
		st.products[id] = p
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (q *Queries) DeleteProduct(_ context.Context, id int64) (*repository.Removal, error) {
	removal := &repository.Removal{Orders: make(map[int64]int64)}
	err := q.do(func(st *state) error {
		if _, ok := st.products[id]; !ok {
			return apperrors.NotFound("product", id)
		}
		for itemID, it := range st.items {
			if it.ProductID != id {
				continue
			}
			delete(st.items, itemID)
			if _, ok := removal.Orders[it.OrderID]; !ok {
				o := st.orders[it.OrderID]
				o.Version = st.nextVersion()
				st.orders[it.OrderID] = o
				removal.Orders[it.OrderID] = o.Version
			}
		}
		for recID, r := range st.records {
			if r.ProductID == id {
				delete(st.records, recID)
			}
		}
		delete(st.products, id)
		removal.Version = st.nextVersion()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removal, nil
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

func (q *Queries) GetOrder(_ context.Context, id int64) (*domain.Order, error) {
	var out domain.Order
	err := q.do(func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return apperrors.NotFound("order", id)
		}
		o.Items = st.orderItems(id)
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// LockOrder is GetOrder; the unit already holds the store exclusively.
func (q *Queries) LockOrder(ctx context.Context, id int64) (*domain.Order, error) {
	return q.GetOrder(ctx, id)
}

func (st *state) orderItems(orderID int64) []domain.OrderItem {
	var items []domain.OrderItem
	for _, it := range st.items {
		if it.OrderID != orderID {
			continue
		}
		it.ProductName = st.products[it.ProductID].Name
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

func (q *Queries) InsertOrder(_ context.Context, o *domain.Order) (*domain.Order, error) {
	created := *o
	created.Items = make([]domain.OrderItem, len(o.Items))
	err := q.do(func(st *state) error {
		if _, ok := st.orders[o.ID]; ok {
			return fmt.Errorf("insert order: duplicate order_id %d", o.ID)
		}
		for _, it := range o.Items {
			if _, ok := st.products[it.ProductID]; !ok {
				return fmt.Errorf("insert order item for product %d: product does not exist", it.ProductID)
			}
		}

		created.Version = st.nextVersion()
		header := *o
		header.Items = nil
		header.Version = created.Version
		st.orders[o.ID] = header

		for i, it := range o.Items {
			st.lastItemID++
			it.ID = st.lastItemID
			it.OrderID = o.ID
			stored := it
			stored.ProductName = ""
			st.items[it.ID] = stored
			created.Items[i] = it
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (q *Queries) UpdateOrderStatus(_ context.Context, id int64, status domain.Status) (int64, error) {
	var version int64
	err := q.do(func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return apperrors.NotFound("order", id)
		}
		o.Status = status
		o.Version = st.nextVersion()
		st.orders[id] = o
		version = o.Version
		return nil
	})
	return version, err
}

func (q *Queries) ListOrders(_ context.Context, params pagination.Params) ([]domain.Order, int, error) {
	var (
		out   []domain.Order
		total int
	)
	err := q.do(func(st *state) error {
		all := make([]domain.Order, 0, len(st.orders))
		for _, o := range st.orders {
			all = append(all, o)
		}
		sort.Slice(all, func(i, j int) bool {
			if !all[i].OrderDate.Equal(all[j].OrderDate) {
				return all[i].OrderDate.After(all[j].OrderDate)
			}
			return all[i].ID > all[j].ID
		})
		out, total = page(all, params)
		return nil
	})
	return out, total, err
}

// ---------------------------------------------------------------------------
// Shipments
// ---------------------------------------------------------------------------

func (q *Queries) InsertShipment(_ context.Context, s *domain.Shipment) error {
	return q.do(func(st *state) error {
		if _, ok := st.shipments[s.ID]; ok {
			return fmt.Errorf("insert shipment: duplicate shipment_id %d", s.ID)
		}
		if _, ok := st.orders[s.OrderID]; !ok {
			return fmt.Errorf("insert shipment: order %d does not exist", s.OrderID)
		}
		st.shipments[s.ID] = *s
		return nil
	})
}

func (st *state) shipmentDetails(s domain.Shipment) domain.ShipmentDetails {
	o := st.orders[s.OrderID]
	return domain.ShipmentDetails{
		Shipment:    s,
		OrderDate:   o.OrderDate,
		OrderStatus: o.Status,
		TotalAmount: o.TotalAmount,
	}
}

func (q *Queries) GetShipment(_ context.Context, id int64) (*domain.ShipmentDetails, error) {
	var out domain.ShipmentDetails
	err := q.do(func(st *state) error {
		s, ok := st.shipments[id]
		if !ok {
			return apperrors.NotFound("shipment", id)
		}
		out = st.shipmentDetails(s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (q *Queries) LockShipment(_ context.Context, id int64) (*domain.Shipment, error) {
	var out domain.Shipment
	err := q.do(func(st *state) error {
		s, ok := st.shipments[id]
		if !ok {
			return apperrors.NotFound("shipment", id)
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (q *Queries) UpdateShipmentStatus(_ context.Context, id int64, status domain.Status) error {
	return q.do(func(st *state) error {
		s, ok := st.shipments[id]
		if !ok {
			return apperrors.NotFound("shipment", id)
		}
		s.Status = status
		st.shipments[id] = s
		return nil
	})
}

func (q *Queries) ListShipments(_ context.Context, params pagination.Params) ([]domain.ShipmentDetails, int, error) {
	var (
		out   []domain.ShipmentDetails
		total int
	)
	err := q.do(func(st *state) error {
		all := make([]domain.ShipmentDetails, 0, len(st.shipments))
		for _, s := range st.shipments {
			all = append(all, st.shipmentDetails(s))
		}
		sort.Slice(all, func(i, j int) bool {
			if !all[i].ShipmentDate.Equal(all[j].ShipmentDate) {
				return all[i].ShipmentDate.After(all[j].ShipmentDate)
			}
			return all[i].ID > all[j].ID
		})
		out, total = page(all, params)
		return nil
	})
	return out, total, err
}

// ---------------------------------------------------------------------------
// Suppliers
// ---------------------------------------------------------------------------

func (q *Queries) InsertSupplier(_ context.Context, s *domain.Supplier) error {
	return q.do(func(st *state) error {
		if _, ok := st.suppliers[s.ID]; ok {
			return apperrors.AlreadyExists("supplier", "id", s.ID)
		}
		st.suppliers[s.ID] = *s
		return nil
	})
}

func (q *Queries) GetSupplier(_ context.Context, id int64) (*domain.Supplier, error) {
	var out domain.Supplier
	err := q.do(func(st *state) error {
		s, ok := st.suppliers[id]
		if !ok {
			return apperrors.NotFound("supplier", id)
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (q *Queries) InsertSupplyRecord(_ context.Context, r *domain.SupplyRecord) (*domain.SupplyRecord, error) {
	created := *r
	err := q.do(func(st *state) error {
		if _, ok := st.products[r.ProductID]; !ok {
			return fmt.Errorf("insert supply record: product %d does not exist", r.ProductID)
		}
		st.lastRecordID++
		created.ID = st.lastRecordID
		st.records[created.ID] = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (q *Queries) ListSupplyRecords(_ context.Context, params pagination.Params) ([]domain.SupplyRecord, int, error) {
	var (
		out   []domain.SupplyRecord
		total int
	)
	err := q.do(func(st *state) error {
		all := make([]domain.SupplyRecord, 0, len(st.records))
		for _, r := range st.records {
			all = append(all, r)
		}
		sort.Slice(all, func(i, j int) bool {
			if !all[i].SupplyDate.Equal(all[j].SupplyDate) {
				return all[i].SupplyDate.After(all[j].SupplyDate)
			}
			return all[i].ID > all[j].ID
		})
		out, total = page(all, params)
		return nil
	})
	return out, total, err
}
