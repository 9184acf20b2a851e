package handlers

import (
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/invoicevault/invoicevault/internal/extraction"
)

// Payloads are single extraction results; anything bigger is not ours
const maxExtractionBody = 4 << 20

// SaveExtraction accepts one extraction result from the producer and stores
// it. A payload without an InvoiceId is acknowledged but not persisted.
func (h *Handlers) SaveExtraction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxExtractionBody))
	if err != nil {
		h.jsonError(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	res, err := extraction.ParseResult(body)
	if err != nil {
		log.Debug().Err(err).Msg("Rejected malformed extraction payload")
		h.jsonError(w, "Malformed extraction result", http.StatusBadRequest)
		return
	}

	invoiceID := res.InvoiceID()
	if invoiceID == "" {
		// Same contract as the store layer: missing id is a silent skip
		log.Debug().Msg("Extraction payload without InvoiceId; nothing stored")
		h.jsonResponse(w, map[string]string{"status": "skipped"}, http.StatusAccepted)
		return
	}

	if err := h.db.SaveInvoiceExtraction(res.Invoice(), res.FieldConfidence()); err != nil {
		log.Error().Err(err).Str("invoice_id", invoiceID).Msg("Failed to save extraction result")
		h.jsonError(w, "Failed to save extraction result", http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, map[string]string{"status": "stored", "invoice_id": invoiceID}, http.StatusOK)
}
