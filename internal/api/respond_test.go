package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "magasin/internal/errors"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantTag  string
	}{
		{"validation", apperrors.NewValidationError("bad input"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"not found", apperrors.NewNotFoundError("missing"), http.StatusNotFound, "NOT_FOUND"},
		{"unauthorized", apperrors.NewUnauthorizedError("who"), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"forbidden", apperrors.NewForbiddenError("no"), http.StatusForbidden, "FORBIDDEN"},
		{"conflict", apperrors.NewConflictError("raced"), http.StatusConflict, "CONFLICT"},
		{"insufficient stock", apperrors.NewInsufficientStockError("short"), http.StatusUnprocessableEntity, "INSUFFICIENT_STOCK"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, zap.NewNop(), "trace-1", tt.err)

			assert.Equal(t, tt.wantCode, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.wantTag, resp.Code)
			assert.Equal(t, "trace-1", resp.TraceID)
		})
	}
}

func TestWriteError_InternalHidesDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, zap.NewNop(), "trace-1", errors.New("sql: driver gone"))

	resp := decodeError(t, rec)
	assert.NotContains(t, resp.Message, "sql")
}

func TestWriteError_ShortageItems(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, zap.NewNop(), "trace-1", apperrors.NewInsufficientStockError("short",
		apperrors.ShortageItem{ProduitID: "p-1", Requested: 5, Available: 2},
	))

	resp := decodeError(t, rec)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "p-1", resp.Items[0].ProduitID)
}
