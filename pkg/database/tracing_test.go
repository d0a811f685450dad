package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
		SetSlowQueryLogging(0, nil)
	})

	return exporter
}

func spanAttrs(s sdktrace.ReadOnlySpan) map[string]string {
	attrs := make(map[string]string)
	for _, a := range s.Attributes() {
		attrs[string(a.Key)] = a.Value.Emit()
	}
	return attrs
}

func TestTraceQuery_Success(t *testing.T) {
	exporter := setupTestTracer(t)

	_, end := TraceQuery(context.Background(), "GetProduct", "SELECT * FROM products WHERE product_id = $1")
	end(nil)

	spans := exporter.GetSpans().Snapshots()
	require.Len(t, spans, 1)
	assert.Equal(t, "db.GetProduct", spans[0].Name())
	attrs := spanAttrs(spans[0])
	assert.Equal(t, "postgresql", attrs["db.system"])
	assert.Equal(t, "GetProduct", attrs["db.operation"])
	assert.Equal(t, "SELECT * FROM products WHERE product_id = $1", attrs["db.statement"])
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
}

func TestTraceQuery_Error(t *testing.T) {
	exporter := setupTestTracer(t)

	_, end := TraceQuery(context.Background(), "AdjustStock", "UPDATE products SET stock_quantity = stock_quantity + $1")
	end(errors.New("connection refused"))

	spans := exporter.GetSpans().Snapshots()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.NotEmpty(t, spans[0].Events())
}

func TestTraceUnit_NestsStatements(t *testing.T) {
	exporter := setupTestTracer(t)

	ctx, endUnit := TraceUnit(context.Background(), "cancel_order")
	_, endQuery := TraceQuery(ctx, "LockOrder", "SELECT ... FOR UPDATE")
	endQuery(nil)
	endUnit(nil)

	spans := exporter.GetSpans().Snapshots()
	require.Len(t, spans, 2)
	child, parent := spans[0], spans[1]
	assert.Equal(t, "db.tx.cancel_order", parent.Name())
	assert.Equal(t, "cancel_order", spanAttrs(parent)["db.unit"])
	assert.Equal(t, parent.SpanContext().SpanID(), child.Parent().SpanID())
}

func TestSlowQueryLogging(t *testing.T) {
	tests := []struct {
		name      string
		threshold time.Duration
		err       error
		wantLog   bool
	}{
		{"slow statement logged", time.Nanosecond, nil, true},
		{"slow failure includes error", time.Nanosecond, errors.New("unique constraint violation"), true},
		{"fast statement silent", time.Hour, nil, false},
		{"disabled", 0, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupTestTracer(t)
			var buf bytes.Buffer
			SetSlowQueryLogging(tt.threshold, slog.New(slog.NewJSONHandler(&buf, nil)))

			_, end := TraceQuery(context.Background(), "ListShipments", "SELECT * FROM shipments")
			end(tt.err)

			out := buf.String()
			if !tt.wantLog {
				assert.NotContains(t, out, "slow query detected")
				return
			}
			assert.Contains(t, out, "slow query detected")
			assert.Contains(t, out, "ListShipments")
			assert.Contains(t, out, "SELECT * FROM shipments")
			if tt.err != nil {
				assert.Contains(t, out, tt.err.Error())
			}
		})
	}
}

func TestSlowQueryLogging_NilLoggerDoesNotPanic(t *testing.T) {
	setupTestTracer(t)
	SetSlowQueryLogging(time.Nanosecond, nil)

	_, end := TraceQuery(context.Background(), "AnyOp", "SELECT 1")
	assert.NotPanics(t, func() { end(nil) })
}

func TestSetSlowQueryLogging_Concurrent(t *testing.T) {
	setupTestTracer(t)
	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			SetSlowQueryLogging(time.Duration(i)*time.Millisecond, logger)
		}
	}()
	for i := 0; i < 100; i++ {
		getSlowQueryConfig()
	}
	<-done
}
