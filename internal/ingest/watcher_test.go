package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/invoicevault/invoicevault/internal/database"
)

func setupWatcher(t *testing.T) (*Watcher, *database.DB, string) {
	t.Helper()

	tmp := t.TempDir()
	db, err := database.New(filepath.Join(tmp, "test.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	dropDir := filepath.Join(tmp, "drop")
	for _, dir := range []string{dropDir, filepath.Join(dropDir, "processed"), filepath.Join(dropDir, "failed")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("failed to create %s: %v", dir, err)
		}
	}

	w, err := New(db, dropDir)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	t.Cleanup(w.Stop)

	return w, db, dropDir
}

func writeDropFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write drop file: %v", err)
	}
	return path
}

func TestProcessFile_StoresAndMoves(t *testing.T) {
	w, db, dropDir := setupWatcher(t)

	path := writeDropFile(t, dropDir, "result.json", `{
		"data": {"InvoiceId": "INV-1", "VendorName": "Acme", "InvoiceTotal": 123.45},
		"dataConfidence": {"VendorName": 0.97}
	}`)

	w.ProcessFile(path)

	inv, err := db.GetInvoice("INV-1")
	if err != nil {
		t.Fatalf("GetInvoice returned error: %v", err)
	}
	if inv == nil {
		t.Fatal("expected invoice to be stored")
	}
	if inv.VendorName == nil || *inv.VendorName != "Acme" {
		t.Fatalf("expected vendor Acme, got %v", inv.VendorName)
	}

	ingestions, err := db.ListRecentIngestions(10)
	if err != nil {
		t.Fatalf("ListRecentIngestions returned error: %v", err)
	}
	if len(ingestions) != 1 {
		t.Fatalf("expected 1 ingestion record, got %d", len(ingestions))
	}
	if ingestions[0].Status != database.IngestionStatusStored {
		t.Fatalf("expected stored status, got %s", ingestions[0].Status)
	}
	if ingestions[0].InvoiceID != "INV-1" {
		t.Fatalf("expected invoice id INV-1, got %q", ingestions[0].InvoiceID)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected source file to be moved away")
	}
	if _, err := os.Stat(filepath.Join(dropDir, "processed", "result.json")); err != nil {
		t.Fatalf("expected file in processed/: %v", err)
	}
}

func TestProcessFile_SkipsMissingInvoiceID(t *testing.T) {
	w, db, dropDir := setupWatcher(t)

	path := writeDropFile(t, dropDir, "noid.json", `{"data": {"VendorName": "Acme"}}`)
	w.ProcessFile(path)

	ingestions, err := db.ListRecentIngestions(10)
	if err != nil {
		t.Fatalf("ListRecentIngestions returned error: %v", err)
	}
	if len(ingestions) != 1 {
		t.Fatalf("expected 1 ingestion record, got %d", len(ingestions))
	}
	if ingestions[0].Status != database.IngestionStatusSkipped {
		t.Fatalf("expected skipped status, got %s", ingestions[0].Status)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM invoices").Scan(&count); err != nil {
		t.Fatalf("failed to count invoices: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no invoices stored, got %d", count)
	}

	// Parseable files without an id still count as handled
	if _, err := os.Stat(filepath.Join(dropDir, "processed", "noid.json")); err != nil {
		t.Fatalf("expected file in processed/: %v", err)
	}
}

func TestProcessFile_RecordsFailure(t *testing.T) {
	w, db, dropDir := setupWatcher(t)

	path := writeDropFile(t, dropDir, "broken.json", `{"data": {"InvoiceId": "INV-1", "Items": [42]}}`)
	w.ProcessFile(path)

	ingestions, err := db.ListRecentIngestions(10)
	if err != nil {
		t.Fatalf("ListRecentIngestions returned error: %v", err)
	}
	if len(ingestions) != 1 {
		t.Fatalf("expected 1 ingestion record, got %d", len(ingestions))
	}
	if ingestions[0].Status != database.IngestionStatusFailed {
		t.Fatalf("expected failed status, got %s", ingestions[0].Status)
	}
	if ingestions[0].Error == "" {
		t.Fatal("expected error text to be recorded")
	}

	if _, err := os.Stat(filepath.Join(dropDir, "failed", "broken.json")); err != nil {
		t.Fatalf("expected file in failed/: %v", err)
	}
}

func TestWatcher_StartStop(t *testing.T) {
	w, _, dropDir := setupWatcher(t)

	if w.IsRunning() {
		t.Fatal("expected watcher to start stopped")
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if !w.IsRunning() {
		t.Fatal("expected watcher to be running after Start")
	}

	// Start must create the processed/failed subdirectories
	for _, dir := range []string{processedDir, failedDir} {
		if _, err := os.Stat(filepath.Join(dropDir, dir)); err != nil {
			t.Fatalf("expected %s directory: %v", dir, err)
		}
	}

	w.Stop()
	if w.IsRunning() {
		t.Fatal("expected watcher to be stopped after Stop")
	}
}

func TestIsResultFile(t *testing.T) {
	if !isResultFile("/drop/a.json") || !isResultFile("/drop/A.JSON") {
		t.Fatal("expected .json files to match")
	}
	if isResultFile("/drop/a.json.tmp") || isResultFile("/drop/a.pdf") {
		t.Fatal("expected non-json files to be ignored")
	}
}
