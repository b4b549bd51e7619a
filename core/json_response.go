// Package core holds the HTTP surface shared by all modules: the JSON
// response envelope and the mapping from domain errors to status codes.
package core

import (
	"encoding/json"
	"net/http"
)

// JSONResponse is the standard JSON response structure.
type JSONResponse struct {
	Data  any          `json:"data,omitempty"`
	Error *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	// Retryable hints that the failure was transient and the same request
	// may succeed shortly.
	Retryable bool `json:"retryable,omitempty"`
}

// WriteJSON renders a success payload.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(JSONResponse{Data: data})
}

// WriteError renders a domain error with the status code it maps to.
func WriteError(w http.ResponseWriter, err error) {
	status, detail := mapError(err)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(JSONResponse{Error: &detail})
}
