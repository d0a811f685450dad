package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/WarehouseGo/internal/repository"
	"github.com/utafrali/WarehouseGo/pkg/database"
	apperrors "github.com/utafrali/WarehouseGo/pkg/errors"
)

// Gateway is the PostgreSQL record store.
type Gateway struct {
	pool      database.TxBeginner
	txTimeout time.Duration
	logger    *slog.Logger
}

// NewGateway creates a gateway over pool. Every transactional unit is
// bounded by txTimeout; zero means no bound beyond the caller's context.
func NewGateway(pool database.TxBeginner, txTimeout time.Duration, logger *slog.Logger) *Gateway {
	return &Gateway{pool: pool, txTimeout: txTimeout, logger: logger}
}

// Queries returns record operations that run directly on the pool.
func (g *Gateway) Queries() repository.Queries {
	return &Queries{db: g.pool}
}

// WithinTx runs fn inside a single database transaction.
func (g *Gateway) WithinTx(ctx context.Context, unit string, fn repository.TxFunc) (err error) {
	if g.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.txTimeout)
		defer cancel()
	}

	ctx, end := database.TraceUnit(ctx, unit)
	defer func() { end(err) }()

	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return apperrors.TxAborted(unit, fmt.Errorf("begin: %w", err))
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err = fn(ctx, &Queries{db: tx}); err != nil {
		g.logger.DebugContext(ctx, "transaction rolled back",
			slog.String("unit", unit),
			slog.String("error", err.Error()),
		)
		return repository.AbortError(unit, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return apperrors.TxAborted(unit, fmt.Errorf("commit: %w", err))
	}
	return nil
}

// Queries implements repository.Queries on a pool or a transaction.
type Queries struct {
	db database.DBTX
}

// NewQueries wraps db.
func NewQueries(db database.DBTX) *Queries {
	return &Queries{db: db}
}

// NextID takes a transaction-scoped advisory lock on table and returns
// MAX(id)+1. Outside a transaction the lock is released immediately.
func (q *Queries) NextID(ctx context.Context, table repository.Table) (int64, error) {
	col := table.IDColumn()
	if col == "" {
		return 0, fmt.Errorf("next id: unknown table %q", table)
	}

	if _, err := q.db.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", string(table)); err != nil {
		return 0, fmt.Errorf("lock %s id sequence: %w", table, err)
	}

	var id int64
	query := fmt.Sprintf("SELECT COALESCE(MAX(%s), 0) + 1 FROM %s", col, table)
	if err := q.db.QueryRow(ctx, query).Scan(&id); err != nil {
		return 0, fmt.Errorf("next %s id: %w", table, err)
	}
	return id, nil
}
