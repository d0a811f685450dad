package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/WarehouseGo/internal/domain"
	apperrors "github.com/utafrali/WarehouseGo/pkg/errors"
	"github.com/utafrali/WarehouseGo/pkg/pagination"
)

func scanOrder(row pgx.Row, extra ...any) (*domain.Order, error) {
	var (
		o      domain.Order
		status string
	)
	dest := append([]any{&o.ID, &o.OrderDate, &status, &o.TotalAmount, &o.Version}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	o.Status = domain.Status(status)
	return &o, nil
}

// GetOrder retrieves an order with its items.
func (q *Queries) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	return q.getOrder(ctx, id, false)
}

// LockOrder retrieves an order with its items and locks the order row.
func (q *Queries) LockOrder(ctx context.Context, id int64) (*domain.Order, error) {
	return q.getOrder(ctx, id, true)
}

func (q *Queries) getOrder(ctx context.Context, id int64, forUpdate bool) (*domain.Order, error) {
	query := `
		SELECT order_id, order_date, status, total_amount, version
		FROM orders
		WHERE order_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	o, err := scanOrder(q.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := q.orderItems(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

func (q *Queries) orderItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	query := `
		SELECT oi.item_id, oi.order_id, oi.product_id, p.name, oi.quantity, oi.price
		FROM order_items oi
		JOIN products p ON p.product_id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.item_id`

	rows, err := q.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.Price); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return items, nil
}

// InsertOrder writes the order header followed by its items in order.
func (q *Queries) InsertOrder(ctx context.Context, o *domain.Order) (*domain.Order, error) {
	headerQuery := `
		INSERT INTO orders (order_id, order_date, status, total_amount)
		VALUES ($1, $2, $3, $4)
		RETURNING version`

	created := *o
	err := q.db.QueryRow(ctx, headerQuery, o.ID, o.OrderDate, string(o.Status), o.TotalAmount).Scan(&created.Version)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4)
		RETURNING item_id`

	created.Items = make([]domain.OrderItem, len(o.Items))
	for i, it := range o.Items {
		it.OrderID = o.ID
		if err := q.db.QueryRow(ctx, itemQuery, o.ID, it.ProductID, it.Quantity, it.Price).Scan(&it.ID); err != nil {
			return nil, fmt.Errorf("insert order item for product %d: %w", it.ProductID, err)
		}
		created.Items[i] = it
	}
	return &created, nil
}

// UpdateOrderStatus sets the status of an order and returns its new version.
func (q *Queries) UpdateOrderStatus(ctx context.Context, id int64, status domain.Status) (int64, error) {
	query := `
		UPDATE orders
		SET status = $2, version = nextval('row_version_seq')
		WHERE order_id = $1
		RETURNING version`

	var version int64
	if err := q.db.QueryRow(ctx, query, id, string(status)).Scan(&version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.NotFound("order", id)
		}
		return 0, fmt.Errorf("update order status: %w", err)
	}
	return version, nil
}

// ListOrders returns one page of order headers, newest first.
func (q *Queries) ListOrders(ctx context.Context, page pagination.Params) ([]domain.Order, int, error) {
	query := `
		SELECT order_id, order_date, status, total_amount, version, count(*) OVER() AS total_count
		FROM orders
		ORDER BY order_date DESC, order_id DESC
		LIMIT $1 OFFSET $2`

	rows, err := q.db.Query(ctx, query, page.PerPage, page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var (
		orders []domain.Order
		total  int
	)
	for rows.Next() {
		o, err := scanOrder(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, total, nil
}
