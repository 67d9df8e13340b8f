package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/shrdaa/backend/internal/database"
	"github.com/shrdaa/backend/internal/services"
)

const maxBodyBytes = 1_048_576 // 1 MB

// decodeJSON reads exactly one JSON object from the body into dst and
// validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, validator *services.ValidationHelper, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}

	if err := validator.ValidateStruct(dst); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return false
	}

	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps a service error to its HTTP status and client message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrInvalidAmount):
		return http.StatusBadRequest, "Invalid amount"
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, services.ErrTokenRevoked):
		return http.StatusUnauthorized, "Token revoked"
	case errors.Is(err, services.ErrNotAuthorized):
		return http.StatusForbidden, "Account is not authorized for this project"
	case errors.Is(err, services.ErrInvalidAccount):
		return http.StatusNotFound, "Account not found"
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, services.ErrAlreadyVerified):
		return http.StatusConflict, "Transaction already verified"
	case errors.Is(err, services.ErrInvalidTransactionShape):
		return http.StatusUnprocessableEntity, "Transfer not allowed between these accounts"
	case errors.Is(err, services.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity, "Insufficient funds"
	}
	return http.StatusInternalServerError, "An Internal Error Occurred"
}

func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, message := statusFor(err)
	if status == http.StatusInternalServerError {
		attrs := []any{"error", err}
		if errors.Is(err, database.ErrStorage) {
			attrs = append(attrs, "storage", true)
		}
		logger.Error("Request failed", attrs...)
	}
	services.SendErrorResponse(w, message, status, nil)
}
