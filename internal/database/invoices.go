package database

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Invoice represents the extracted header fields of one invoice, plus its
// line items. All fields except the id are nullable; a nil pointer is
// persisted as NULL.
type Invoice struct {
	InvoiceID               string     `json:"InvoiceId"`
	VendorName              *string    `json:"VendorName"`
	InvoiceDate             *string    `json:"InvoiceDate"`
	BillingAddressRecipient *string    `json:"BillingAddressRecipient"`
	ShippingAddress         *string    `json:"ShippingAddress"`
	SubTotal                *float64   `json:"SubTotal"`
	ShippingCost            *float64   `json:"ShippingCost"`
	InvoiceTotal            *float64   `json:"InvoiceTotal"`
	Items                   []LineItem `json:"Items"`
}

// FieldConfidence mirrors the invoice header fields with the extraction
// confidence score reported for each. Scores are stored as-is, without
// range validation.
type FieldConfidence struct {
	InvoiceID               string   `json:"InvoiceId"`
	VendorName              *float64 `json:"VendorName"`
	InvoiceDate             *float64 `json:"InvoiceDate"`
	BillingAddressRecipient *float64 `json:"BillingAddressRecipient"`
	ShippingAddress         *float64 `json:"ShippingAddress"`
	SubTotal                *float64 `json:"SubTotal"`
	ShippingCost            *float64 `json:"ShippingCost"`
	InvoiceTotal            *float64 `json:"InvoiceTotal"`
}

// LineItem represents a single invoice line item
type LineItem struct {
	Description *string  `json:"Description"`
	Name        *string  `json:"Name"`
	Quantity    *float64 `json:"Quantity"`
	UnitPrice   *float64 `json:"UnitPrice"`
	Amount      *float64 `json:"Amount"`
}

// SaveInvoiceExtraction stores an extracted invoice, its per-field
// confidences, and its line items in a single transaction. The invoice and
// confidence rows are upserted; line items are fully replaced (prior rows
// for the id are deleted first). An empty invoice id makes the whole call a
// no-op without touching the database.
func (db *DB) SaveInvoiceExtraction(inv *Invoice, conf *FieldConfidence) error {
	if inv == nil || inv.InvoiceID == "" {
		log.Debug().Msg("Skipping invoice save: no InvoiceId in extraction result")
		return nil
	}

	return db.Transaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO invoices (InvoiceId, VendorName, InvoiceDate, BillingAddressRecipient, ShippingAddress, SubTotal, ShippingCost, InvoiceTotal)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(InvoiceId) DO UPDATE SET
				VendorName = excluded.VendorName,
				InvoiceDate = excluded.InvoiceDate,
				BillingAddressRecipient = excluded.BillingAddressRecipient,
				ShippingAddress = excluded.ShippingAddress,
				SubTotal = excluded.SubTotal,
				ShippingCost = excluded.ShippingCost,
				InvoiceTotal = excluded.InvoiceTotal
		`, inv.InvoiceID, inv.VendorName, inv.InvoiceDate, inv.BillingAddressRecipient,
			inv.ShippingAddress, inv.SubTotal, inv.ShippingCost, inv.InvoiceTotal)
		if err != nil {
			return fmt.Errorf("failed to upsert invoice %s: %w", inv.InvoiceID, err)
		}

		if conf == nil {
			conf = &FieldConfidence{}
		}
		_, err = tx.Exec(`
			INSERT INTO confidences (InvoiceId, VendorName, InvoiceDate, BillingAddressRecipient, ShippingAddress, SubTotal, ShippingCost, InvoiceTotal)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(InvoiceId) DO UPDATE SET
				VendorName = excluded.VendorName,
				InvoiceDate = excluded.InvoiceDate,
				BillingAddressRecipient = excluded.BillingAddressRecipient,
				ShippingAddress = excluded.ShippingAddress,
				SubTotal = excluded.SubTotal,
				ShippingCost = excluded.ShippingCost,
				InvoiceTotal = excluded.InvoiceTotal
		`, inv.InvoiceID, conf.VendorName, conf.InvoiceDate, conf.BillingAddressRecipient,
			conf.ShippingAddress, conf.SubTotal, conf.ShippingCost, conf.InvoiceTotal)
		if err != nil {
			return fmt.Errorf("failed to upsert confidences for %s: %w", inv.InvoiceID, err)
		}

		// Replace line items wholesale; no merge, no history
		if _, err := tx.Exec("DELETE FROM items WHERE InvoiceId = ?", inv.InvoiceID); err != nil {
			return fmt.Errorf("failed to delete items for %s: %w", inv.InvoiceID, err)
		}
		for _, item := range inv.Items {
			_, err := tx.Exec(`
				INSERT INTO items (InvoiceId, Description, Name, Quantity, UnitPrice, Amount)
				VALUES (?, ?, ?, ?, ?, ?)
			`, inv.InvoiceID, item.Description, item.Name, item.Quantity, item.UnitPrice, item.Amount)
			if err != nil {
				return fmt.Errorf("failed to insert item for %s: %w", inv.InvoiceID, err)
			}
		}

		return nil
	})
}

// GetInvoice retrieves a full invoice (including line items) by id.
// Returns (nil, nil) when no invoice matches.
func (db *DB) GetInvoice(invoiceID string) (*Invoice, error) {
	inv := &Invoice{}
	var vendorName, invoiceDate, billingRecipient, shippingAddress sql.NullString
	var subTotal, shippingCost, invoiceTotal sql.NullFloat64

	err := db.QueryRow(`
		SELECT InvoiceId, VendorName, InvoiceDate, BillingAddressRecipient, ShippingAddress, SubTotal, ShippingCost, InvoiceTotal
		FROM invoices WHERE InvoiceId = ?
	`, invoiceID).Scan(&inv.InvoiceID, &vendorName, &invoiceDate, &billingRecipient,
		&shippingAddress, &subTotal, &shippingCost, &invoiceTotal)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice %s: %w", invoiceID, err)
	}

	inv.VendorName = nullStringToPtr(vendorName)
	inv.InvoiceDate = nullStringToPtr(invoiceDate)
	inv.BillingAddressRecipient = nullStringToPtr(billingRecipient)
	inv.ShippingAddress = nullStringToPtr(shippingAddress)
	inv.SubTotal = nullFloat64ToPtr(subTotal)
	inv.ShippingCost = nullFloat64ToPtr(shippingCost)
	inv.InvoiceTotal = nullFloat64ToPtr(invoiceTotal)

	items, err := db.getLineItems(invoiceID)
	if err != nil {
		return nil, err
	}
	inv.Items = items

	return inv, nil
}

// GetConfidence retrieves the per-field confidence scores for an invoice.
// Returns (nil, nil) when no row matches.
func (db *DB) GetConfidence(invoiceID string) (*FieldConfidence, error) {
	conf := &FieldConfidence{}
	var vendorName, invoiceDate, billingRecipient, shippingAddress sql.NullFloat64
	var subTotal, shippingCost, invoiceTotal sql.NullFloat64

	err := db.QueryRow(`
		SELECT InvoiceId, VendorName, InvoiceDate, BillingAddressRecipient, ShippingAddress, SubTotal, ShippingCost, InvoiceTotal
		FROM confidences WHERE InvoiceId = ?
	`, invoiceID).Scan(&conf.InvoiceID, &vendorName, &invoiceDate, &billingRecipient,
		&shippingAddress, &subTotal, &shippingCost, &invoiceTotal)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get confidences for %s: %w", invoiceID, err)
	}

	conf.VendorName = nullFloat64ToPtr(vendorName)
	conf.InvoiceDate = nullFloat64ToPtr(invoiceDate)
	conf.BillingAddressRecipient = nullFloat64ToPtr(billingRecipient)
	conf.ShippingAddress = nullFloat64ToPtr(shippingAddress)
	conf.SubTotal = nullFloat64ToPtr(subTotal)
	conf.ShippingCost = nullFloat64ToPtr(shippingCost)
	conf.InvoiceTotal = nullFloat64ToPtr(invoiceTotal)

	return conf, nil
}

// GetInvoicesByVendor retrieves all invoices whose VendorName exactly
// matches the given name, each fully populated with its line items.
// Fetches ids first and composes GetInvoice per id; fine at this scale.
func (db *DB) GetInvoicesByVendor(vendorName string) ([]*Invoice, error) {
	rows, err := db.Query("SELECT InvoiceId FROM invoices WHERE VendorName = ?", vendorName)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices for vendor %s: %w", vendorName, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan invoice id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invoice ids: %w", err)
	}

	invoices := make([]*Invoice, 0, len(ids))
	for _, id := range ids {
		inv, err := db.GetInvoice(id)
		if err != nil {
			return nil, err
		}
		if inv != nil {
			invoices = append(invoices, inv)
		}
	}

	return invoices, nil
}

func (db *DB) getLineItems(invoiceID string) ([]LineItem, error) {
	rows, err := db.Query(`
		SELECT Description, Name, Quantity, UnitPrice, Amount
		FROM items WHERE InvoiceId = ? ORDER BY id
	`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get items for %s: %w", invoiceID, err)
	}
	defer rows.Close()

	var items []LineItem
	for rows.Next() {
		var item LineItem
		var description, name sql.NullString
		var quantity, unitPrice, amount sql.NullFloat64

		if err := rows.Scan(&description, &name, &quantity, &unitPrice, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan item for %s: %w", invoiceID, err)
		}

		item.Description = nullStringToPtr(description)
		item.Name = nullStringToPtr(name)
		item.Quantity = nullFloat64ToPtr(quantity)
		item.UnitPrice = nullFloat64ToPtr(unitPrice)
		item.Amount = nullFloat64ToPtr(amount)
		items = append(items, item)
	}

	return items, rows.Err()
}
