package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/WarehouseGo/internal/domain"
	"github.com/utafrali/WarehouseGo/pkg/database"
	apperrors "github.com/utafrali/WarehouseGo/pkg/errors"
	"github.com/utafrali/WarehouseGo/pkg/pagination"
)

// InsertSupplier creates a supplier.
func (q *Queries) InsertSupplier(ctx context.Context, s *domain.Supplier) error {
	query := `INSERT INTO suppliers (supplier_id, name, contact) VALUES ($1, $2, $3)`

	if _, err := q.db.Exec(ctx, query, s.ID, s.Name, s.Contact); err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("supplier", "id", s.ID)
		}
		return fmt.Errorf("insert supplier: %w", err)
	}
	return nil
}

// GetSupplier retrieves a supplier by id.
func (q *Queries) GetSupplier(ctx context.Context, id int64) (*domain.Supplier, error) {
	query := `SELECT supplier_id, name, contact FROM suppliers WHERE supplier_id = $1`

	var s domain.Supplier
	if err := q.db.QueryRow(ctx, query, id).Scan(&s.ID, &s.Name, &s.Contact); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("supplier", id)
		}
		return nil, fmt.Errorf("get supplier: %w", err)
	}
	return &s, nil
}

// InsertSupplyRecord appends to the supply log and returns the record with
// its id.
func (q *Queries) InsertSupplyRecord(ctx context.Context, r *domain.SupplyRecord) (*domain.SupplyRecord, error) {
	query := `
		INSERT INTO supply_records (product_id, product_name, quantity, supplier_name, supply_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING record_id`

	created := *r
	err := q.db.QueryRow(ctx, query,
		r.ProductID,
		r.ProductName,
		r.Quantity,
		r.SupplierName,
		r.SupplyDate,
	).Scan(&created.ID)
	if err != nil {
		return nil, fmt.Errorf("insert supply record: %w", err)
	}
	return &created, nil
}

// ListSupplyRecords returns one page of the supply log, newest first.
func (q *Queries) ListSupplyRecords(ctx context.Context, page pagination.Params) ([]domain.SupplyRecord, int, error) {
	query := `
		SELECT record_id, product_id, product_name, quantity, supplier_name, supply_date,
		       count(*) OVER() AS total_count
		FROM supply_records
		ORDER BY supply_date DESC, record_id DESC
		LIMIT $1 OFFSET $2`

	rows, err := q.db.Query(ctx, query, page.PerPage, page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list supply records: %w", err)
	}
	defer rows.Close()

	var (
		records []domain.SupplyRecord
		total   int
	)
	for rows.Next() {
		var r domain.SupplyRecord
		if err := rows.Scan(&r.ID, &r.ProductID, &r.ProductName, &r.Quantity, &r.SupplierName, &r.SupplyDate, &total); err != nil {
			return nil, 0, fmt.Errorf("scan supply record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate supply records: %w", err)
	}
	return records, total, nil
}
