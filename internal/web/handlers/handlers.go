// Package handlers implements the JSON HTTP API.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/invoicevault/invoicevault/internal/database"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	db *database.DB
}

// New creates a new Handlers instance
func New(db *database.DB) *Handlers {
	return &Handlers{db: db}
}

// jsonResponse writes v as a JSON body with the given status
func (h *Handlers) jsonResponse(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// jsonError sends a JSON error response
func (h *Handlers) jsonError(w http.ResponseWriter, message string, status int) {
	h.jsonResponse(w, map[string]string{"error": message}, status)
}
