package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/utafrali/WarehouseGo/pkg/errors"
)

// errorEnvelope mirrors the error half of httputil.Response.
type errorEnvelope struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// codeKinds maps envelope codes back to the sentinel they were rendered from.
var codeKinds = map[string]error{
	"NOT_FOUND":           apperrors.ErrNotFound,
	"ALREADY_EXISTS":      apperrors.ErrAlreadyExists,
	"INVALID_INPUT":       apperrors.ErrInvalidInput,
	"VALIDATION_ERROR":    apperrors.ErrInvalidInput,
	"INVALID_PARAMETER":   apperrors.ErrInvalidInput,
	"INVALID_STATE":       apperrors.ErrInvalidState,
	"INSUFFICIENT_STOCK":  apperrors.ErrInsufficientStock,
	"TRANSACTION_ABORTED": apperrors.ErrTxAborted,
}

// ParseResponseError reads a non-2xx response and rebuilds the AppError the
// server rendered, so callers can branch with errors.Is. The body is fully
// consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}

	var env errorEnvelope
	if json.Unmarshal(body, &env) != nil || env.Error == nil {
		return fmt.Errorf("%s returned status %d: %s", serviceName, resp.StatusCode, string(body))
	}

	kind, ok := codeKinds[env.Error.Code]
	if !ok && resp.StatusCode >= http.StatusInternalServerError {
		kind = apperrors.ErrInternal
	}
	return &apperrors.AppError{
		Code:    env.Error.Code,
		Message: fmt.Sprintf("%s: %s", serviceName, env.Error.Message),
		Status:  resp.StatusCode,
		Err:     kind,
	}
}

// IsClientError reports whether status is a 4xx.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
