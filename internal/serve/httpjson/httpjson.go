// Package httpjson renders JSON HTTP responses.
package httpjson

import (
	"encoding/json"
	"net/http"

	"github.com/crowdtask/platform-backend/internal/logger"
)

// Render writes the value as a JSON response with status 200.
func Render(w http.ResponseWriter, value any) {
	RenderStatus(w, http.StatusOK, value)
}

// RenderStatus writes the value as a JSON response with the given status.
func RenderStatus(w http.ResponseWriter, statusCode int, value any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(value); err != nil {
		logger.Errorf("rendering JSON response: %v", err)
	}
}

// DecodeJSON decodes the request body into dst, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	return decoder.Decode(dst)
}
