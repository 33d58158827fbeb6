package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cardlink/apiserver/internal/services"
	"github.com/cardlink/apiserver/internal/store"
)

type contextKey string

const contextSubjectKey contextKey = "sub"

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse is a simple success payload.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func userIDFromContext(ctx context.Context) (int64, error) {
	subject, ok := ctx.Value(contextSubjectKey).(int64)
	if !ok || subject < 1 {
		return 0, errors.New("missing subject")
	}
	return subject, nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps service-layer failures onto the API error
// vocabulary. Authentication failures stay coarse on purpose.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case services.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email already registered")
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, services.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, services.ErrCardNotFound):
		writeError(w, http.StatusNotFound, "card not found")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
