package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"foodcourt-be/internal/apperr"
	"foodcourt-be/internal/logger"

	"go.uber.org/zap"
)

const InsufficientBalanceMessage = "Insufficient balance in wallet to place the order."

type MessageResponse struct {
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.L().Warn("failed to encode response", zap.String("layer", "transport"), zap.Error(err))
	}
}

func respondMessage(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, MessageResponse{Message: msg})
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrInvalidInput),
		errors.Is(err, apperr.ErrEmptyCart),
		errors.Is(err, apperr.ErrInsufficientFunds):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrInvalidState),
		errors.Is(err, apperr.ErrCancellationWindowExpired):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err with the status of its kind. Internal details of
// unavailable and unexpected errors are logged, not returned.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()

	switch {
	case errors.Is(err, apperr.ErrInsufficientFunds):
		msg = InsufficientBalanceMessage
	case status == http.StatusServiceUnavailable:
		w.Header().Set("Retry-After", "1")
		msg = "a dependency is temporarily unavailable, retry shortly"
	case status == http.StatusInternalServerError:
		logger.FromCtx(r.Context()).Error("unhandled error",
			zap.String("layer", "transport"),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		msg = "internal server error"
	}

	respondMessage(w, status, msg)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
