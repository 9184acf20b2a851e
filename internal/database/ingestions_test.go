package database

import "testing"

func TestCreateIngestion_AndListRecent(t *testing.T) {
	db := openTestDB(t)

	records := []*Ingestion{
		{FilePath: "/drop/a.json", InvoiceID: "INV-1", Status: IngestionStatusStored},
		{FilePath: "/drop/b.json", Status: IngestionStatusSkipped},
		{FilePath: "/drop/c.json", Status: IngestionStatusFailed, Error: "unexpected token"},
	}
	for _, ing := range records {
		if err := db.CreateIngestion(ing); err != nil {
			t.Fatalf("CreateIngestion returned error: %v", err)
		}
		if ing.ID == 0 {
			t.Fatal("expected ingestion id to be set")
		}
	}

	listed, err := db.ListRecentIngestions(10)
	if err != nil {
		t.Fatalf("ListRecentIngestions returned error: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 ingestions, got %d", len(listed))
	}

	// Newest first
	if listed[0].FilePath != "/drop/c.json" {
		t.Fatalf("expected newest record first, got %s", listed[0].FilePath)
	}
	if listed[0].Error != "unexpected token" {
		t.Fatalf("expected error text preserved, got %q", listed[0].Error)
	}
	if listed[2].InvoiceID != "INV-1" {
		t.Fatalf("expected invoice id preserved, got %q", listed[2].InvoiceID)
	}

	limited, err := db.ListRecentIngestions(2)
	if err != nil {
		t.Fatalf("ListRecentIngestions returned error: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected limit to apply, got %d records", len(limited))
	}
}
