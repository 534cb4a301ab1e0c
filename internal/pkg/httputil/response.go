package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/ignite/courier-ops/internal/pkg/logger"
)

// Envelope is the standard body for every API response.
type Envelope struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Data    any            `json:"data,omitempty"`
	Warning any            `json:"warning,omitempty"`
	Error   *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse is the structured error attached when success is false.
type ErrorResponse struct {
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// JSON writes a JSON response with the given status code. The data is
// serialized and Content-Type is set automatically.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("json encode failed", "error", err)
	}
}

// OK writes a 200 success envelope.
func OK(w http.ResponseWriter, message string, data any) {
	JSON(w, http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

// OKWithWarning writes a 200 success envelope with a warning sibling.
// A nil warning is omitted.
func OKWithWarning(w http.ResponseWriter, message string, data, warning any) {
	JSON(w, http.StatusOK, Envelope{Success: true, Message: message, Data: data, Warning: warning})
}

// Created writes a 201 success envelope, optionally with a warning.
func Created(w http.ResponseWriter, message string, data, warning any) {
	JSON(w, http.StatusCreated, Envelope{Success: true, Message: message, Data: data, Warning: warning})
}

// Error writes a failure envelope.
func Error(w http.ResponseWriter, status int, code, message string, details any) {
	JSON(w, status, Envelope{
		Success: false,
		Message: message,
		Error:   &ErrorResponse{Code: code, Details: details},
	})
}

// BadRequest writes a 400 error.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, "validation_error", message, nil)
}

// NotFound writes a 404 error.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, "not_found", message, nil)
}

// InternalError writes a 500 error. Logs the real error but returns a
// generic message to the client (never leak internals).
func InternalError(w http.ResponseWriter, err error) {
	logger.Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, "internal_error", "internal server error", nil)
}

// Decode reads JSON from the request body into dst.
// Returns false and writes a 400 response if parsing fails.
func Decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		BadRequest(w, "invalid JSON: "+err.Error())
		return false
	}
	return true
}
