package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"netpanel/internal/domain"
	"netpanel/internal/preset"
)

// Error response structure
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// HealthResponse is the body of GET /healthz
type HealthResponse struct {
	Status string `json:"status"`
}

// Health reports that the server is up
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{Status: "ok"}, http.StatusOK)
}

func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON: %v", err)
	}
}

func writeError(w http.ResponseWriter, error, details string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Details: details,
	}); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, preset.ErrPresetFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError logs err and writes it with the status matching its
// sentinel. msg names the failed action.
func writeServiceError(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("%s: %v", msg, err)
		writeError(w, msg, err.Error(), status)
		return
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeError(w, http.StatusText(status), err.Error(), status)
}

// decodeJSON decodes a request body into v. Malformed bodies are reported
// as domain.ErrInvalid.
func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return fmt.Errorf("%w: invalid request body: %v", domain.ErrInvalid, err)
	}
	return nil
}

func contentTypeFor(format string) string {
	switch format {
	case "yaml", "yml", "ansible":
		return "application/x-yaml"
	default:
		return "application/json"
	}
}
