package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/WarehouseGo/pkg/logger"
)

// OperatorIDHeader identifies the warehouse clerk issuing the request. It is
// informational only and used for log attribution.
const OperatorIDHeader = "X-Operator-ID"

// RequestLogger stores a logger enriched with correlation_id, operator_id,
// trace_id and span_id in the request context. Mount it after
// RequestLogging and Tracing so those values exist.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if op := r.Header.Get(OperatorIDHeader); op != "" {
				ctx = logger.WithOperatorID(ctx, op)
			}
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
