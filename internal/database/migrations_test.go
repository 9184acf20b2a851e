package database

import (
	"path/filepath"
	"testing"
)

func TestMigrate_IsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		t.Fatalf("first migrate failed: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}

	var version int
	if err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version); err != nil {
		t.Fatalf("failed to read schema version: %v", err)
	}
	if version != len(migrations) {
		t.Fatalf("expected schema version %d, got %d", len(migrations), version)
	}

	var applied int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied); err != nil {
		t.Fatalf("failed to count applied migrations: %v", err)
	}
	if applied != len(migrations) {
		t.Fatalf("expected %d applied migrations, got %d", len(migrations), applied)
	}

	// All tables from the migrations must exist
	for _, table := range []string{"settings", "invoices", "confidences", "items", "ingestions"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		if err != nil {
			t.Fatalf("expected table %s to exist: %v", table, err)
		}
	}
}

func TestSplitSQLStatements(t *testing.T) {
	sql := `
		-- comment only line
		CREATE TABLE a (id INTEGER);

		CREATE TABLE b (
			id INTEGER
		);
	`
	statements := splitSQLStatements(sql)
	if len(statements) != 2 {
		t.Fatalf("expected 2 statements, got %d: %v", len(statements), statements)
	}
}

func TestInitializeDefaults(t *testing.T) {
	db := openTestDB(t)

	if err := db.InitializeDefaults(); err != nil {
		t.Fatalf("InitializeDefaults returned error: %v", err)
	}

	val, err := db.GetSetting("maintenance.schedule")
	if err != nil {
		t.Fatalf("GetSetting returned error: %v", err)
	}
	if val != "@daily" {
		t.Fatalf("expected default schedule @daily, got %q", val)
	}

	// Existing values must not be overwritten
	if err := db.SetSetting("log.level", "debug"); err != nil {
		t.Fatalf("SetSetting returned error: %v", err)
	}
	if err := db.InitializeDefaults(); err != nil {
		t.Fatalf("second InitializeDefaults returned error: %v", err)
	}
	val, err = db.GetSetting("log.level")
	if err != nil {
		t.Fatalf("GetSetting returned error: %v", err)
	}
	if val != "debug" {
		t.Fatalf("expected log.level to stay debug, got %q", val)
	}
}
