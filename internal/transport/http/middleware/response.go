package middleware

import (
	"encoding/json"
	"net/http"
)

// writeJSONError writes the {"success": false, "error": msg} envelope.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": msg})
}
