package database

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// Migrate runs all database migrations
func (db *DB) Migrate() error {
	log.Info().Msg("Running database migrations")

	// Create migrations table if not exists
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	log.Debug().Int("current_version", currentVersion).Msg("Current schema version")

	// Run migrations
	for _, migration := range migrations {
		if migration.Version > currentVersion {
			log.Info().Int("version", migration.Version).Str("name", migration.Name).Msg("Applying migration")

			if err := db.Transaction(func(tx *sql.Tx) error {
				// Execute migration SQL - split by semicolons and execute each statement
				// This ensures each statement is properly executed and errors are caught
				statements := splitSQLStatements(migration.SQL)
				for i, stmt := range statements {
					if _, err := tx.Exec(stmt); err != nil {
						return fmt.Errorf("migration %d statement %d failed: %w", migration.Version, i+1, err)
					}
				}

				// Record migration
				if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", migration.Version); err != nil {
					return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
				}

				return nil
			}); err != nil {
				return err
			}
		}
	}

	log.Info().Msg("Database migrations complete")
	return nil
}

type migration struct {
	Version int
	Name    string
	SQL     string
}

// splitSQLStatements splits a SQL string into individual statements.
// It handles comments and only returns non-empty statements.
func splitSQLStatements(sql string) []string {
	var statements []string
	var current strings.Builder

	lines := strings.SplitSeq(sql, "\n")
	for line := range lines {
		trimmed := strings.TrimSpace(line)
		// Skip empty lines and comments
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")

		// Check if line ends with semicolon (statement complete)
		if strings.HasSuffix(trimmed, ";") {
			stmt := strings.TrimSpace(current.String())
			if stmt != "" && stmt != ";" {
				statements = append(statements, stmt)
			}
			current.Reset()
		}
	}

	// Handle any remaining content without trailing semicolon
	if remaining := strings.TrimSpace(current.String()); remaining != "" {
		statements = append(statements, remaining)
	}

	return statements
}

// Column names are PascalCase because the schema is shared with external
// consumers of the extraction pipeline and predates this service.
var migrations = []migration{
	{
		Version: 1,
		Name:    "initial_schema",
		SQL: `
			-- Global settings
			CREATE TABLE settings (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);

			-- Extracted invoice header fields (one row per invoice)
			CREATE TABLE invoices (
				InvoiceId TEXT PRIMARY KEY,
				VendorName TEXT,
				InvoiceDate TEXT,
				BillingAddressRecipient TEXT,
				ShippingAddress TEXT,
				SubTotal REAL,
				ShippingCost REAL,
				InvoiceTotal REAL
			);

			-- Per-field confidence scores, one-to-one with invoices
			CREATE TABLE confidences (
				InvoiceId TEXT PRIMARY KEY,
				VendorName REAL,
				InvoiceDate REAL,
				BillingAddressRecipient REAL,
				ShippingAddress REAL,
				SubTotal REAL,
				ShippingCost REAL,
				InvoiceTotal REAL,
				FOREIGN KEY (InvoiceId) REFERENCES invoices(InvoiceId)
			);

			-- Invoice line items (one invoice can have many items)
			CREATE TABLE items (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				InvoiceId TEXT,
				Description TEXT,
				Name TEXT,
				Quantity REAL,
				UnitPrice REAL,
				Amount REAL,
				FOREIGN KEY (InvoiceId) REFERENCES invoices(InvoiceId)
			);

			CREATE INDEX idx_invoices_vendor ON invoices(VendorName);
			CREATE INDEX idx_items_invoice ON items(InvoiceId);
		`,
	},
	{
		Version: 2,
		Name:    "ingestion_audit",
		SQL: `
			-- Audit trail for files processed by the ingest watcher
			CREATE TABLE ingestions (
				id INTEGER PRIMARY KEY,
				file_path TEXT NOT NULL,
				invoice_id TEXT,
				status TEXT NOT NULL,
				error TEXT,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);

			CREATE INDEX idx_ingestions_created ON ingestions(created_at);
		`,
	},
}
