package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"taskhive/backend/logging"
	"taskhive/backend/services"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Status  bool        `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	writeJSON(w, statusCode, Response{Status: true, Message: message, Data: data})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// Anything outside the taxonomy is reported generically so store errors never
// reach the client verbatim.
func writeServiceError(w http.ResponseWriter, err error) {
	var statusCode int
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		statusCode = http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		statusCode = http.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		statusCode = http.StatusConflict
	case errors.Is(err, services.ErrValidation):
		statusCode = http.StatusBadRequest
	default:
		logging.Logger.Errorf("Event ID: INTERNAL_ERROR, Description: %v", err)
		writeJSON(w, http.StatusInternalServerError, Response{Status: false, Message: "Something went wrong"})
		return
	}
	writeJSON(w, statusCode, Response{Status: false, Message: err.Error()})
}
