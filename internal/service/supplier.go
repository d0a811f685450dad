package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/utafrali/WarehouseGo/internal/domain"
	"github.com/utafrali/WarehouseGo/internal/repository"
	apperrors "github.com/utafrali/WarehouseGo/pkg/errors"
	"github.com/utafrali/WarehouseGo/pkg/pagination"
)

// SupplyResult is the restocked product and the log entry written for it.
type SupplyResult struct {
	Product *domain.Product      `json:"product"`
	Record  *domain.SupplyRecord `json:"record"`
}

// SupplierService registers suppliers and records deliveries.
type SupplierService struct {
	gw     repository.Gateway
	ledger *StockLedger
	events EventPublisher
	logger *slog.Logger
	now    func() time.Time
}

func NewSupplierService(
	gw repository.Gateway,
	ledger *StockLedger,
	events EventPublisher,
	logger *slog.Logger,
) *SupplierService {
	return &SupplierService{
		gw:     gw,
		ledger: ledger,
		events: events,
		logger: logger,
		now:    utcNow,
	}
}

// RegisterSupplier creates a supplier under the next free id.
func (s *SupplierService) RegisterSupplier(ctx context.Context, name, contact string) (*domain.Supplier, error) {
	name, contact = strings.TrimSpace(name), strings.TrimSpace(contact)
	if name == "" {
		return nil, apperrors.InvalidInput("supplier name is required")
	}
	if contact == "" {
		return nil, apperrors.InvalidInput("supplier contact is required")
	}

	var created *domain.Supplier
	err := runUnit(ctx, s.gw, unitRegisterSupplier, func(ctx context.Context, q repository.Queries) error {
		id, err := q.NextID(ctx, repository.TableSuppliers)
		if err != nil {
			return err
		}
		created = &domain.Supplier{ID: id, Name: name, Contact: contact}
		return q.InsertSupplier(ctx, created)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "supplier registered",
		slog.Int64("supplier_id", created.ID),
		slog.String("name", created.Name),
	)
	return created, nil
}

func (s *SupplierService) GetSupplier(ctx context.Context, supplierID int64) (*domain.Supplier, error) {
	return s.gw.Queries().GetSupplier(ctx, supplierID)
}

// Supply restocks a product from a supplier. The stock increase, the
// product's supplier name and the supply record are written in one unit.
func (s *SupplierService) Supply(ctx context.Context, supplierID, productID int64, quantity int) (*SupplyResult, error) {
	if quantity <= 0 {
		return nil, apperrors.InvalidInput("supply quantity must be positive")
	}

	var result *SupplyResult
	err := runUnit(ctx, s.gw, unitSupply, func(ctx context.Context, q repository.Queries) error {
		supplier, err := q.GetSupplier(ctx, supplierID)
		if err != nil {
			return err
		}

		locked, err := q.LockProducts(ctx, []int64{productID})
		if err != nil {
			return err
		}
		if _, ok := locked[productID]; !ok {
			return apperrors.NotFound("product", productID)
		}

		if _, err := s.ledger.adjust(ctx, q, productID, quantity); err != nil {
			return err
		}
		product, err := q.SetSupplierName(ctx, productID, supplier.Name)
		if err != nil {
			return err
		}

		record, err := q.InsertSupplyRecord(ctx, &domain.SupplyRecord{
			ProductID:    productID,
			ProductName:  product.Name,
			Quantity:     quantity,
			SupplierName: supplier.Name,
			SupplyDate:   s.now().Truncate(24 * time.Hour),
		})
		if err != nil {
			return err
		}
		result = &SupplyResult{Product: product, Record: record}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.ledger.committed(ctx, ReasonSupply, []stockMove{{product: *result.Product, delta: quantity}})
	logSideEffect(ctx, s.logger, "failed to publish supply.recorded event",
		s.events.SupplyRecorded(ctx, result.Record, supplierID),
		slog.Int64("record_id", result.Record.ID))

	s.logger.InfoContext(ctx, "supply recorded",
		slog.Int64("supplier_id", supplierID),
		slog.Int64("product_id", productID),
		slog.Int("quantity", quantity),
		slog.Int("stock_quantity", result.Product.StockQuantity),
	)
	return result, nil
}

// ListSupplyRecords returns one page of the supply log, newest first.
func (s *SupplierService) ListSupplyRecords(ctx context.Context, page pagination.Params) ([]domain.SupplyRecord, int, error) {
	records, total, err := s.gw.Queries().ListSupplyRecords(ctx, page)
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "list supply records")
	}
	return records, total, nil
}
