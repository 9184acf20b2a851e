package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// GetInvoice returns one full invoice (header fields, confidences, items)
func (h *Handlers) GetInvoice(w http.ResponseWriter, r *http.Request) {
	invoiceID := chi.URLParam(r, "id")

	inv, err := h.db.GetInvoice(invoiceID)
	if err != nil {
		log.Error().Err(err).Str("invoice_id", invoiceID).Msg("Failed to get invoice")
		h.jsonError(w, "Failed to get invoice", http.StatusInternalServerError)
		return
	}
	if inv == nil {
		h.jsonError(w, "Invoice not found", http.StatusNotFound)
		return
	}

	h.jsonResponse(w, inv, http.StatusOK)
}

// GetInvoiceConfidence returns the per-field confidence scores for an invoice
func (h *Handlers) GetInvoiceConfidence(w http.ResponseWriter, r *http.Request) {
	invoiceID := chi.URLParam(r, "id")

	conf, err := h.db.GetConfidence(invoiceID)
	if err != nil {
		log.Error().Err(err).Str("invoice_id", invoiceID).Msg("Failed to get confidences")
		h.jsonError(w, "Failed to get confidences", http.StatusInternalServerError)
		return
	}
	if conf == nil {
		h.jsonError(w, "Invoice not found", http.StatusNotFound)
		return
	}

	h.jsonResponse(w, conf, http.StatusOK)
}

// ListInvoicesByVendor returns all invoices for an exact vendor name match
func (h *Handlers) ListInvoicesByVendor(w http.ResponseWriter, r *http.Request) {
	vendor := r.URL.Query().Get("vendor")
	if vendor == "" {
		h.jsonError(w, "Missing vendor query parameter", http.StatusBadRequest)
		return
	}

	invoices, err := h.db.GetInvoicesByVendor(vendor)
	if err != nil {
		log.Error().Err(err).Str("vendor", vendor).Msg("Failed to list invoices by vendor")
		h.jsonError(w, "Failed to list invoices", http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, invoices, http.StatusOK)
}
