package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/WarehouseGo/internal/domain"
	"github.com/utafrali/WarehouseGo/internal/repository"
	"github.com/utafrali/WarehouseGo/pkg/database"
	apperrors "github.com/utafrali/WarehouseGo/pkg/errors"
	"github.com/utafrali/WarehouseGo/pkg/pagination"
)

const productColumns = "product_id, name, description, price, stock_quantity, supplier_name, version"

const lockProductsQuery = `
	SELECT ` + productColumns + `
	FROM products
	WHERE product_id = ANY($1)
	ORDER BY product_id
	FOR UPDATE`

func scanProduct(row pgx.Row, extra ...any) (*domain.Product, error) {
	var p domain.Product
	dest := append([]any{&p.ID, &p.Name, &p.Description, &p.Price, &p.StockQuantity, &p.SupplierName, &p.Version}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProduct retrieves a product by id.
func (q *Queries) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE product_id = $1`

	p, err := scanProduct(q.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// LockProducts selects the products FOR UPDATE in ascending id order so
// concurrent orders touching the same products always queue in the same
// sequence.
func (q *Queries) LockProducts(ctx context.Context, ids []int64) (result map[int64]*domain.Product, err error) {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	ctx, end := database.TraceQuery(ctx, "LockProducts", lockProductsQuery)
	defer func() { end(err) }()

	rows, err := q.db.Query(ctx, lockProductsQuery, sorted)
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	defer rows.Close()

	result = make(map[int64]*domain.Product, len(sorted))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan locked product: %w", err)
		}
		result[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate locked products: %w", err)
	}
	return result, nil
}

// ListProducts returns one page of products ordered by id.
func (q *Queries) ListProducts(ctx context.Context, page pagination.Params) ([]domain.Product, int, error) {
	query := `
		SELECT ` + productColumns + `, count(*) OVER() AS total_count
		FROM products
		ORDER BY product_id
		LIMIT $1 OFFSET $2`

	rows, err := q.db.Query(ctx, query, page.PerPage, page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var (
		products []domain.Product
		total    int
	)
	for rows.Next() {
		p, err := scanProduct(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate products: %w", err)
	}
	return products, total, nil
}

// InsertProduct creates a product with a caller-chosen id.
func (q *Queries) InsertProduct(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	query := `
		INSERT INTO products (product_id, name, description, price, stock_quantity, supplier_name)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + productColumns

	created, err := scanProduct(q.db.QueryRow(ctx, query,
		p.ID,
		p.Name,
		p.Description,
		p.Price,
		p.StockQuantity,
		p.SupplierName,
	))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperrors.AlreadyExists("product", "id", p.ID)
		}
		return nil, fmt.Errorf("insert product: %w", err)
	}
	return created, nil
}

// AdjustStock adds delta to the product's stock. The table's CHECK
// constraint rejects a negative result.
func (q *Queries) AdjustStock(ctx context.Context, id int64, delta int) (*domain.Product, error) {
	query := `
		UPDATE products
		SET stock_quantity = stock_quantity + $2, version = nextval('row_version_seq')
		WHERE product_id = $1
		RETURNING ` + productColumns

	p, err := scanProduct(q.db.QueryRow(ctx, query, id, delta))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("adjust stock of product %d: %w", id, err)
	}
	return p, nil
}

// SetSupplierName records the supplier that last restocked the product.
func (q *Queries) SetSupplierName(ctx context.Context, id int64, name string) (*domain.Product, error) {
	query := `
		UPDATE products
		SET supplier_name = $2, version = nextval('row_version_seq')
		WHERE product_id = $1
		RETURNING ` + productColumns

	p, err := scanProduct(q.db.QueryRow(ctx, query, id, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("set supplier of product %d: %w", id, err)
	}
	return p, nil
}

// DeleteProduct purges the product's order items, restamps the orders that
// lost them, then deletes the supply records and the product itself. Orders
// are touched before the product row so the lock order matches CancelOrder.
func (q *Queries) DeleteProduct(ctx context.Context, id int64) (*repository.Removal, error) {
	rows, err := q.db.Query(ctx, `DELETE FROM order_items WHERE product_id = $1 RETURNING order_id`, id)
	if err != nil {
		return nil, fmt.Errorf("delete order items of product %d: %w", id, err)
	}

	seen := make(map[int64]struct{})
	var orderIDs []int64
	for rows.Next() {
		var orderID int64
		if err := rows.Scan(&orderID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan deleted order item: %w", err)
		}
		if _, ok := seen[orderID]; !ok {
			seen[orderID] = struct{}{}
			orderIDs = append(orderIDs, orderID)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deleted order items: %w", err)
	}

	removal := &repository.Removal{Orders: make(map[int64]int64, len(orderIDs))}
	if len(orderIDs) > 0 {
		sort.Slice(orderIDs, func(i, j int) bool { return orderIDs[i] < orderIDs[j] })
		if err := q.restampOrders(ctx, orderIDs, removal.Orders); err != nil {
			return nil, fmt.Errorf("restamp orders of product %d: %w", id, err)
		}
	}

	if _, err := q.db.Exec(ctx, `DELETE FROM supply_records WHERE product_id = $1`, id); err != nil {
		return nil, fmt.Errorf("delete supply records of product %d: %w", id, err)
	}

	tag, err := q.db.Exec(ctx, `DELETE FROM products WHERE product_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("delete product %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperrors.NotFound("product", id)
	}

	if err := q.db.QueryRow(ctx, `SELECT nextval('row_version_seq')`).Scan(&removal.Version); err != nil {
		return nil, fmt.Errorf("draw removal version of product %d: %w", id, err)
	}
	return removal, nil
}

func (q *Queries) restampOrders(ctx context.Context, orderIDs []int64, into map[int64]int64) error {
	rows, err := q.db.Query(ctx, `
		UPDATE orders
		SET version = nextval('row_version_seq')
		WHERE order_id = ANY($1)
		RETURNING order_id, version`, orderIDs)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id, version int64
		if err := rows.Scan(&id, &version); err != nil {
			return err
		}
		into[id] = version
	}
	return rows.Err()
}
