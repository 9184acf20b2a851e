package handlers

import "net/http"

// Health reports liveness and database reachability
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(); err != nil {
		h.jsonResponse(w, map[string]string{"status": "degraded", "database": err.Error()}, http.StatusServiceUnavailable)
		return
	}

	h.jsonResponse(w, map[string]string{"status": "ok"}, http.StatusOK)
}
