package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

// RequireMethod validates that the request uses method, writing a 405
// response and returning false otherwise.
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// WriteJSON writes data as the JSON response body with the given status.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes {"success":false,"error":message} at statusCode.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// pathSuffix returns the portion of r.URL.Path after prefix, or "" if the
// path does not start with prefix.
func pathSuffix(r *http.Request, prefix string) string {
	if !strings.HasPrefix(r.URL.Path, prefix) {
		return ""
	}
	return r.URL.Path[len(prefix):]
}
