package api

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	apperrors "magasin/internal/errors"
)

type errorResponse struct {
	TraceID   string                       `json:"traceId"`
	Code      string                       `json:"code"`
	Message   string                       `json:"message"`
	Details   []apperrors.ValidationDetail `json:"details,omitempty"`
	Items     []apperrors.ShortageItem     `json:"items,omitempty"`
	Timestamp time.Time                    `json:"timestamp"`
}

func WriteJSON(w http.ResponseWriter, logger *zap.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

// WriteError maps the typed error taxonomy to HTTP statuses. Anything outside
// the taxonomy is reported as an opaque internal error.
func WriteError(w http.ResponseWriter, logger *zap.Logger, traceID string, err error) {
	now := time.Now().UTC()

	if ve, ok := apperrors.IsValidationError(err); ok {
		WriteJSON(w, logger, http.StatusBadRequest, errorResponse{
			TraceID: traceID, Code: "VALIDATION_ERROR", Message: ve.Message, Details: ve.Details, Timestamp: now,
		})
		return
	}

	if _, ok := apperrors.IsNotFoundError(err); ok {
		WriteJSON(w, logger, http.StatusNotFound, errorResponse{
			TraceID: traceID, Code: "NOT_FOUND", Message: err.Error(), Timestamp: now,
		})
		return
	}

	if _, ok := apperrors.IsUnauthorizedError(err); ok {
		WriteJSON(w, logger, http.StatusUnauthorized, errorResponse{
			TraceID: traceID, Code: "UNAUTHORIZED", Message: err.Error(), Timestamp: now,
		})
		return
	}

	if _, ok := apperrors.IsForbiddenError(err); ok {
		WriteJSON(w, logger, http.StatusForbidden, errorResponse{
			TraceID: traceID, Code: "FORBIDDEN", Message: err.Error(), Timestamp: now,
		})
		return
	}

	if _, ok := apperrors.IsConflictError(err); ok {
		WriteJSON(w, logger, http.StatusConflict, errorResponse{
			TraceID: traceID, Code: "CONFLICT", Message: err.Error(), Timestamp: now,
		})
		return
	}

	if ise, ok := apperrors.IsInsufficientStockError(err); ok {
		WriteJSON(w, logger, http.StatusUnprocessableEntity, errorResponse{
			TraceID: traceID, Code: "INSUFFICIENT_STOCK", Message: ise.Message, Items: ise.Items, Timestamp: now,
		})
		return
	}

	logger.Error("unexpected error", zap.String("traceId", traceID), zap.Error(err))
	WriteJSON(w, logger, http.StatusInternalServerError, errorResponse{
		TraceID: traceID, Code: "INTERNAL_ERROR", Message: "an unexpected error occurred", Timestamp: now,
	})
}
