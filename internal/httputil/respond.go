// Package httputil provides JSON response helpers shared by HTTP handlers.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/shelfworks/catalog-service/internal/errors"
)

// WriteJSON serializes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError serializes err following the service error contract: a JSON
// object with a single "error" field and the taxonomy-mapped status.
func WriteError(w http.ResponseWriter, err error) {
	message := "internal error"
	if svcErr := errors.GetServiceError(err); svcErr != nil {
		message = svcErr.Message
	}
	WriteJSON(w, errors.Status(err), map[string]string{"error": message})
}
