package main

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// writeJSON encodes body with the given status code
func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode JSON response", zap.Int("code", code), zap.Error(err))
	}
}

// sendResponse sends a success payload inside the standard envelope
func sendResponse(w http.ResponseWriter, code int, status string, data interface{}) {
	writeJSON(w, code, Response{Code: code, Status: status, Data: data})
}

// sendError sends an error message inside the standard envelope
func sendError(w http.ResponseWriter, code int, status string, errorMsg string) {
	writeJSON(w, code, Response{Code: code, Status: status, Error: errorMsg})
}
