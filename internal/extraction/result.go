// Package extraction defines the payload contract produced by the external
// invoice extraction pipeline (OCR and field extraction happen upstream;
// this service only receives the results).
package extraction

import (
	"encoding/json"
	"fmt"

	"github.com/invoicevault/invoicevault/internal/database"
)

// Result is one extraction run for a single document. All members are
// optional; absent fields stay nil and persist as NULL.
type Result struct {
	// Confidence is the document-level score reported by the extractor.
	// It is accepted on the wire but not persisted.
	Confidence *float64 `json:"confidence,omitempty"`

	Data           *Fields      `json:"data,omitempty"`
	DataConfidence *Confidences `json:"dataConfidence,omitempty"`
}

// Fields holds the extracted invoice field values, keyed by the extractor's
// field names.
type Fields struct {
	InvoiceID               *string      `json:"InvoiceId,omitempty"`
	VendorName              *string      `json:"VendorName,omitempty"`
	InvoiceDate             *string      `json:"InvoiceDate,omitempty"`
	BillingAddressRecipient *string      `json:"BillingAddressRecipient,omitempty"`
	ShippingAddress         *string      `json:"ShippingAddress,omitempty"`
	SubTotal                *float64     `json:"SubTotal,omitempty"`
	ShippingCost            *float64     `json:"ShippingCost,omitempty"`
	InvoiceTotal            *float64     `json:"InvoiceTotal,omitempty"`
	Items                   []ItemFields `json:"Items,omitempty"`
}

// ItemFields holds one extracted line item
type ItemFields struct {
	Description *string  `json:"Description,omitempty"`
	Name        *string  `json:"Name,omitempty"`
	Quantity    *float64 `json:"Quantity,omitempty"`
	UnitPrice   *float64 `json:"UnitPrice,omitempty"`
	Amount      *float64 `json:"Amount,omitempty"`
}

// Confidences holds the per-field confidence scores. Scores are passed
// through unvalidated; the extractor owns their range.
type Confidences struct {
	VendorName              *float64 `json:"VendorName,omitempty"`
	InvoiceDate             *float64 `json:"InvoiceDate,omitempty"`
	BillingAddressRecipient *float64 `json:"BillingAddressRecipient,omitempty"`
	ShippingAddress         *float64 `json:"ShippingAddress,omitempty"`
	SubTotal                *float64 `json:"SubTotal,omitempty"`
	ShippingCost            *float64 `json:"ShippingCost,omitempty"`
	InvoiceTotal            *float64 `json:"InvoiceTotal,omitempty"`
}

// ParseResult decodes an extraction result payload. Shape errors (a non-array
// Items member, a non-object item entry) surface as decode errors.
func ParseResult(data []byte) (*Result, error) {
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to parse extraction result: %w", err)
	}
	return &res, nil
}

// InvoiceID returns the invoice id carried in the payload, or "" when the
// payload has none. An empty id means the result cannot be persisted.
func (r *Result) InvoiceID() string {
	if r == nil || r.Data == nil || r.Data.InvoiceID == nil {
		return ""
	}
	return *r.Data.InvoiceID
}

// Invoice maps the extracted field values onto a storage invoice.
// Returns nil when the payload carries no data member.
func (r *Result) Invoice() *database.Invoice {
	if r == nil || r.Data == nil {
		return nil
	}

	inv := &database.Invoice{
		InvoiceID:               r.InvoiceID(),
		VendorName:              r.Data.VendorName,
		InvoiceDate:             r.Data.InvoiceDate,
		BillingAddressRecipient: r.Data.BillingAddressRecipient,
		ShippingAddress:         r.Data.ShippingAddress,
		SubTotal:                r.Data.SubTotal,
		ShippingCost:            r.Data.ShippingCost,
		InvoiceTotal:            r.Data.InvoiceTotal,
	}

	for _, item := range r.Data.Items {
		inv.Items = append(inv.Items, database.LineItem{
			Description: item.Description,
			Name:        item.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      item.Amount,
		})
	}

	return inv
}

// FieldConfidence maps the per-field scores onto a storage confidence row.
// The invoice id is taken from the data member so the row always pairs with
// its invoice.
func (r *Result) FieldConfidence() *database.FieldConfidence {
	conf := &database.FieldConfidence{InvoiceID: r.InvoiceID()}
	if r == nil || r.DataConfidence == nil {
		return conf
	}

	conf.VendorName = r.DataConfidence.VendorName
	conf.InvoiceDate = r.DataConfidence.InvoiceDate
	conf.BillingAddressRecipient = r.DataConfidence.BillingAddressRecipient
	conf.ShippingAddress = r.DataConfidence.ShippingAddress
	conf.SubTotal = r.DataConfidence.SubTotal
	conf.ShippingCost = r.DataConfidence.ShippingCost
	conf.InvoiceTotal = r.DataConfidence.InvoiceTotal

	return conf
}
