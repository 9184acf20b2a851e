package database

import (
	"database/sql"
	"fmt"
	"time"
)

// IngestionStatus represents the outcome of one ingested file
type IngestionStatus string

const (
	IngestionStatusStored  IngestionStatus = "stored"
	IngestionStatusSkipped IngestionStatus = "skipped"
	IngestionStatusFailed  IngestionStatus = "failed"
)

// Ingestion is the audit record for a file picked up by the ingest watcher
type Ingestion struct {
	ID        int64           `json:"id"`
	FilePath  string          `json:"file_path"`
	InvoiceID string          `json:"invoice_id,omitempty"`
	Status    IngestionStatus `json:"status"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// CreateIngestion records the outcome of processing one dropped file
func (db *DB) CreateIngestion(ing *Ingestion) error {
	var invoiceID, errText *string
	if ing.InvoiceID != "" {
		invoiceID = &ing.InvoiceID
	}
	if ing.Error != "" {
		errText = &ing.Error
	}

	result, err := db.Exec(`
		INSERT INTO ingestions (file_path, invoice_id, status, error, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, ing.FilePath, invoiceID, ing.Status, errText, time.Now())
	if err != nil {
		return fmt.Errorf("failed to create ingestion record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	ing.ID = id

	return nil
}

// ListRecentIngestions returns the most recent ingestion records, newest first
func (db *DB) ListRecentIngestions(limit int) ([]*Ingestion, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.Query(`
		SELECT id, file_path, invoice_id, status, error, created_at
		FROM ingestions
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingestions: %w", err)
	}
	defer rows.Close()

	var ingestions []*Ingestion
	for rows.Next() {
		ing := &Ingestion{}
		var invoiceID, errText sql.NullString

		if err := rows.Scan(&ing.ID, &ing.FilePath, &invoiceID, &ing.Status, &errText, &ing.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ingestion: %w", err)
		}

		ing.InvoiceID = nullStringValue(invoiceID)
		ing.Error = nullStringValue(errText)
		ingestions = append(ingestions, ing)
	}

	return ingestions, rows.Err()
}
