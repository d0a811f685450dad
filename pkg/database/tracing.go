package database

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/WarehouseGo/pkg/tracing"
)

type slowQueryConfig struct {
	threshold time.Duration
	logger    *slog.Logger
}

var slowQueries atomic.Pointer[slowQueryConfig]

// SetSlowQueryLogging logs a warning for every traced statement or
// transaction that runs longer than threshold. Zero disables it.
func SetSlowQueryLogging(threshold time.Duration, logger *slog.Logger) {
	slowQueries.Store(&slowQueryConfig{threshold: threshold, logger: logger})
}

func getSlowQueryConfig() (time.Duration, *slog.Logger) {
	cfg := slowQueries.Load()
	if cfg == nil {
		return 0, nil
	}
	return cfg.threshold, cfg.logger
}

// TraceQuery starts a client span for one SQL statement. Call the returned
// function with the statement's error when it completes:
//
//	ctx, end := database.TraceQuery(ctx, "LockProducts", lockProductsSQL)
//	defer func() { end(err) }()
func TraceQuery(ctx context.Context, operation, statement string) (context.Context, func(error)) {
	return startSpan(ctx, "db."+operation,
		attribute.String("db.operation", operation),
		attribute.String("db.statement", statement),
	)
}

// TraceUnit starts a span covering a whole transactional unit so every
// statement inside it nests under one parent.
func TraceUnit(ctx context.Context, unit string) (context.Context, func(error)) {
	return startSpan(ctx, "db.tx."+unit,
		attribute.String("db.operation", "transaction"),
		attribute.String("db.unit", unit),
	)
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := tracing.Tracer("pkg/database").Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append([]attribute.KeyValue{attribute.String("db.system", "postgresql")}, attrs...)...),
	)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		threshold, logger := getSlowQueryConfig()
		if threshold <= 0 || logger == nil {
			return
		}
		elapsed := time.Since(start)
		if elapsed < threshold {
			return
		}
		logAttrs := make([]any, 0, len(attrs)+2)
		for _, a := range attrs {
			logAttrs = append(logAttrs, slog.String(string(a.Key), a.Value.Emit()))
		}
		logAttrs = append(logAttrs, slog.Duration("duration", elapsed))
		if err != nil {
			logAttrs = append(logAttrs, slog.String("error", err.Error()))
		}
		logger.WarnContext(ctx, "slow query detected", logAttrs...)
	}
}
