package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	app_errors "superchat/client/internal/errors"
)

// This file contains shared DTOs for API responses and helper functions
// for sending consistent HTTP responses.

// ErrorResponse defines the standard JSON structure for error messages.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse defines a generic success response for operations that
// don't return a full resource.
type StatusResponse struct {
	Status string `json:"status"`
}

// NewChatRequest is the DTO for the external new-chat trigger. The chat
// type selects which workflow the fresh session starts on.
type NewChatRequest struct {
	ChatType string `json:"chatType" validate:"required,oneof=regular superagent"`
}

// ExternalMessageRequest is the DTO for injecting a prompt into the active
// session from outside the application.
type ExternalMessageRequest struct {
	Message string `json:"message" validate:"required,min=1"`
}

// respondWithError maps business-layer errors to HTTP status codes and
// writes a standard JSON error response.
func respondWithError(w http.ResponseWriter, err error) {
	var statusCode int
	var message string

	switch {
	case errors.Is(err, app_errors.ErrNotFound):
		statusCode = http.StatusNotFound
		message = "The requested resource was not found."
	case errors.Is(err, app_errors.ErrValidation):
		statusCode = http.StatusBadRequest
		// Validation errors from the service layer are already descriptive.
		message = err.Error()
	case errors.Is(err, app_errors.ErrNotReady):
		// The client is busy or the backend is not up yet. The action was
		// dropped, not queued, so the caller should retry later.
		statusCode = http.StatusServiceUnavailable
		message = "The assistant is not ready to accept this action. Try again later."
	case errors.Is(err, app_errors.ErrConflict):
		statusCode = http.StatusConflict
		message = "A conflict occurred with the current state of the resource."
	default:
		// Any unhandled error is an internal server error. Details are
		// logged, not leaked.
		statusCode = http.StatusInternalServerError
		message = "An unexpected internal server error occurred."
	}

	slog.Warn("Responding with error", "status_code", statusCode, "client_message", message, "internal_error", err)

	respondWithJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondWithJSON marshals a payload and writes it with the given status.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}
