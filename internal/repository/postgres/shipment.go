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

const shipmentDetailsSelect = `
	SELECT s.shipment_id, s.order_id, s.shipment_date, s.status,
	       o.order_date, o.status, o.total_amount`

func scanShipmentDetails(row pgx.Row, extra ...any) (*domain.ShipmentDetails, error) {
	var (
		d                           domain.ShipmentDetails
		shipmentStatus, orderStatus string
	)
	dest := append([]any{
		&d.ID, &d.OrderID, &d.ShipmentDate, &shipmentStatus,
		&d.OrderDate, &orderStatus, &d.TotalAmount,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	d.Status = domain.Status(shipmentStatus)
	d.OrderStatus = domain.Status(orderStatus)
	return &d, nil
}

// InsertShipment creates a shipment.
func (q *Queries) InsertShipment(ctx context.Context, s *domain.Shipment) error {
	query := `
		INSERT INTO shipments (shipment_id, order_id, shipment_date, status)
		VALUES ($1, $2, $3, $4)`

	if _, err := q.db.Exec(ctx, query, s.ID, s.OrderID, s.ShipmentDate, string(s.Status)); err != nil {
		return fmt.Errorf("insert shipment: %w", err)
	}
	return nil
}

// GetShipment retrieves a shipment joined with its order.
func (q *Queries) GetShipment(ctx context.Context, id int64) (*domain.ShipmentDetails, error) {
	query := shipmentDetailsSelect + `
		FROM shipments s
		JOIN orders o ON o.order_id = s.order_id
		WHERE s.shipment_id = $1`

	d, err := scanShipmentDetails(q.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("shipment", id)
		}
		return nil, fmt.Errorf("get shipment: %w", err)
	}
	return d, nil
}

// LockShipment retrieves a shipment and locks its row.
func (q *Queries) LockShipment(ctx context.Context, id int64) (*domain.Shipment, error) {
	query := `
		SELECT shipment_id, order_id, shipment_date, status
		FROM shipments
		WHERE shipment_id = $1
		FOR UPDATE`

	var (
		s      domain.Shipment
		status string
	)
	err := q.db.QueryRow(ctx, query, id).Scan(&s.ID, &s.OrderID, &s.ShipmentDate, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("shipment", id)
		}
		return nil, fmt.Errorf("lock shipment: %w", err)
	}
	s.Status = domain.Status(status)
	return &s, nil
}

// UpdateShipmentStatus sets the status of a shipment.
func (q *Queries) UpdateShipmentStatus(ctx context.Context, id int64, status domain.Status) error {
	tag, err := q.db.Exec(ctx, `UPDATE shipments SET status = $2 WHERE shipment_id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update shipment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("shipment", id)
	}
	return nil
}

// ListShipments returns one page of shipments with their orders, newest first.
func (q *Queries) ListShipments(ctx context.Context, page pagination.Params) ([]domain.ShipmentDetails, int, error) {
	query := shipmentDetailsSelect + `, count(*) OVER() AS total_count
		FROM shipments s
		JOIN orders o ON o.order_id = s.order_id
		ORDER BY s.shipment_date DESC, s.shipment_id DESC
		LIMIT $1 OFFSET $2`

	rows, err := q.db.Query(ctx, query, page.PerPage, page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list shipments: %w", err)
	}
	defer rows.Close()

	var (
		shipments []domain.ShipmentDetails
		total     int
	)
	for rows.Next() {
		d, err := scanShipmentDetails(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan shipment: %w", err)
		}
		shipments = append(shipments, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate shipments: %w", err)
	}
	return shipments, total, nil
}
