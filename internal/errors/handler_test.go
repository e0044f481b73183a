package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hinosemi/internal/index"
	"hinosemi/internal/operations"
)

func testHandler() *ErrorHandler {
	return NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), false)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"api error", ErrSnapshotNotFound, http.StatusNotFound, TypeNotFound},
		{"wrapped api error", fmt.Errorf("lookup: %w", InvalidParameter("limit", "must be positive")), http.StatusBadRequest, TypeValidation},
		{"run in progress", operations.ErrRunInProgress, http.StatusConflict, TypeRunInProgress},
		{"api run in progress", ErrRunInProgress, http.StatusConflict, TypeRunInProgress},
		{"no data", operations.NewFatalError(operations.StepBuild, "no data", index.NewNoDataError(7)), http.StatusServiceUnavailable, TypeNoData},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, TypeTimeout},
		{"operation failure", operations.NewExecutionError(operations.StepWrite, errors.New("disk full"), false), http.StatusBadGateway, TypeRunFailed},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/index", nil)
			rec := httptest.NewRecorder()

			testHandler().HandleError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, float64(tt.wantStatus), body["status"])
			assert.Equal(t, "/api/index", body["instance"])
		})
	}
}

func TestAPIErrorDetails(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/series?limit=x", nil)
	rec := httptest.NewRecorder()
	testHandler().HandleError(rec, req, InvalidParameter("limit", "not a number"))

	body := decode(t, rec)
	assert.Equal(t, "INVALID_PARAMETER", body["error_code"])
	assert.Equal(t, "not a number", body["details"])
	assert.Equal(t, "Invalid value for limit", body["detail"])
}

func TestRunFailureDetails(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/index/refresh", nil)
	rec := httptest.NewRecorder()
	testHandler().HandleError(rec, req, operations.NewExecutionError(operations.StepWrite, errors.New("disk full"), true))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "RUN_FAILED", body["error_code"])
	assert.Equal(t, "Index run failed", body["detail"])
	assert.Contains(t, body["details"], "disk full")
	assert.Equal(t, true, body["retryable"])
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(testHandler())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, TypeInternal, body["type"])
	assert.NotContains(t, body, "stack")
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	testHandler().NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	testHandler().MethodNotAllowed(rec, httptest.NewRequest(http.MethodDelete, "/api/index", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, decode(t, rec)["detail"], "DELETE")
}
