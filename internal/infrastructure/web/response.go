package web

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"pharmacart/internal/dto"
	apperrors "pharmacart/internal/errors"
)

func WriteJSON(w http.ResponseWriter, status int, data any, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

func WriteValidationError(w http.ResponseWriter, traceID string, message string, logger *zap.Logger, details ...apperrors.ValidationDetail) {
	writeErrorResponse(w, traceID, http.StatusBadRequest, "VALIDATION_ERROR", message, details, logger)
}

// WriteError maps err onto its HTTP status and error code. Anything outside the
// application taxonomy is logged and answered with a generic 500.
func WriteError(w http.ResponseWriter, traceID string, err error, logger *zap.Logger) {
	if ve, ok := apperrors.IsValidationError(err); ok {
		writeErrorResponse(w, traceID, http.StatusBadRequest, "VALIDATION_ERROR", ve.Message, ve.Details, logger)
		return
	}

	if _, ok := apperrors.IsEmptyCartError(err); ok {
		writeErrorResponse(w, traceID, http.StatusBadRequest, "EMPTY_CART", err.Error(), nil, logger)
		return
	}

	if _, ok := apperrors.IsInsufficientFundsError(err); ok {
		writeErrorResponse(w, traceID, http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", err.Error(), nil, logger)
		return
	}

	if _, ok := apperrors.IsNotFoundError(err); ok {
		writeErrorResponse(w, traceID, http.StatusNotFound, "NOT_FOUND", err.Error(), nil, logger)
		return
	}

	if _, ok := apperrors.IsInvalidTransitionError(err); ok {
		writeErrorResponse(w, traceID, http.StatusConflict, "INVALID_TRANSITION", err.Error(), nil, logger)
		return
	}

	if _, ok := apperrors.IsConflictError(err); ok {
		writeErrorResponse(w, traceID, http.StatusConflict, "CONFLICT", err.Error(), nil, logger)
		return
	}

	if _, ok := apperrors.IsUnauthorizedError(err); ok {
		writeErrorResponse(w, traceID, http.StatusUnauthorized, "UNAUTHORIZED", err.Error(), nil, logger)
		return
	}

	if _, ok := apperrors.IsForbiddenError(err); ok {
		writeErrorResponse(w, traceID, http.StatusForbidden, "FORBIDDEN", err.Error(), nil, logger)
		return
	}

	if sue, ok := apperrors.IsStoreUnavailableError(err); ok {
		logger.Error("store unavailable", zap.Error(err))
		writeErrorResponse(w, traceID, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", sue.Message, nil, logger)
		return
	}

	logger.Error("unexpected error", zap.Error(err))
	writeErrorResponse(w, traceID, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred", nil, logger)
}

func writeErrorResponse(w http.ResponseWriter, traceID string, status int, code, message string, details []apperrors.ValidationDetail, logger *zap.Logger) {
	response := dto.ErrorResponse{
		TraceID:   traceID,
		Status:    status,
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}

	WriteJSON(w, status, response, logger)
}
