// Package response writes JSON bodies for HTTP handlers.
package response

import (
	"encoding/json"
	"net/http"
	"time"
)

// ErrorBody is the shape of every error the API returns.
type ErrorBody struct {
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// JSON writes payload with the given status code.
func JSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func OK(w http.ResponseWriter, payload interface{}) {
	JSON(w, http.StatusOK, payload)
}

// Error writes a bare {"error": message} body.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorBody{Error: message})
}

// ErrorWithDetails adds diagnostic detail and the time of failure.
func ErrorWithDetails(w http.ResponseWriter, status int, message, details string, at time.Time) {
	JSON(w, status, ErrorBody{
		Error:     message,
		Details:   details,
		Timestamp: at.UTC().Format(time.RFC3339),
	})
}

func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, message)
}

func MethodNotAllowed(w http.ResponseWriter) {
	Error(w, http.StatusMethodNotAllowed, "Method not allowed")
}
