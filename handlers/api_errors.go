package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
)

// APIError is the error envelope every endpoint returns: a machine-readable
// code for the dashboard plus a human-readable detail.
type APIError struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

// writeJSON writes data as a JSON response with the given status. A nil
// data value sends the status line and headers only.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("Error encoding JSON response: %v", err)
		}
	}
}

// WriteAPIError writes the standard error envelope with the given HTTP
// status, error code, and detail message.
func WriteAPIError(w http.ResponseWriter, httpStatus int, code string, detail string) {
	writeJSON(w, httpStatus, map[string]APIError{
		"error": {Code: code, Detail: detail},
	})
}

// parseIntQuery reads a non-negative integer query parameter, falling back
// to the default when absent or malformed.
func parseIntQuery(r *http.Request, name string, defaultVal int) int {
	valStr := r.URL.Query().Get(name)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val < 0 {
		return defaultVal
	}
	return val
}
