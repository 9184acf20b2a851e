package handlers

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
)

// ListIngestions returns recent ingest watcher audit records, newest first
func (h *Handlers) ListIngestions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	ingestions, err := h.db.ListRecentIngestions(limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list ingestions")
		h.jsonError(w, "Failed to list ingestions", http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, ingestions, http.StatusOK)
}
