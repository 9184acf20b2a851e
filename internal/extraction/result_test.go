package extraction

import "testing"

func TestParseResult_FullPayload(t *testing.T) {
	payload := []byte(`{
		"confidence": 0.92,
		"data": {
			"InvoiceId": "INV-1",
			"VendorName": "Acme",
			"InvoiceDate": "2026-08-01",
			"SubTotal": 100,
			"InvoiceTotal": 123.45,
			"Items": [
				{"Description": "Widget", "Quantity": 2, "UnitPrice": 5, "Amount": 10}
			]
		},
		"dataConfidence": {
			"VendorName": 0.98,
			"InvoiceTotal": 0.91
		}
	}`)

	res, err := ParseResult(payload)
	if err != nil {
		t.Fatalf("ParseResult returned error: %v", err)
	}

	if res.InvoiceID() != "INV-1" {
		t.Fatalf("expected invoice id INV-1, got %q", res.InvoiceID())
	}
	if res.Confidence == nil || *res.Confidence != 0.92 {
		t.Fatalf("expected document confidence 0.92, got %v", res.Confidence)
	}

	inv := res.Invoice()
	if inv == nil {
		t.Fatal("expected invoice mapping")
	}
	if inv.VendorName == nil || *inv.VendorName != "Acme" {
		t.Fatalf("expected vendor Acme, got %v", inv.VendorName)
	}
	if inv.ShippingCost != nil {
		t.Fatalf("expected absent ShippingCost to map to nil, got %v", *inv.ShippingCost)
	}
	if len(inv.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(inv.Items))
	}
	if inv.Items[0].Quantity == nil || *inv.Items[0].Quantity != 2 {
		t.Fatalf("expected quantity 2, got %v", inv.Items[0].Quantity)
	}

	conf := res.FieldConfidence()
	if conf.VendorName == nil || *conf.VendorName != 0.98 {
		t.Fatalf("expected vendor confidence 0.98, got %v", conf.VendorName)
	}
	if conf.InvoiceDate != nil {
		t.Fatalf("expected absent InvoiceDate confidence to map to nil, got %v", *conf.InvoiceDate)
	}
}

func TestParseResult_MissingMembers(t *testing.T) {
	res, err := ParseResult([]byte(`{}`))
	if err != nil {
		t.Fatalf("ParseResult returned error: %v", err)
	}
	if res.InvoiceID() != "" {
		t.Fatalf("expected empty invoice id, got %q", res.InvoiceID())
	}
	if res.Invoice() != nil {
		t.Fatal("expected nil invoice for payload without data")
	}
	conf := res.FieldConfidence()
	if conf == nil || conf.VendorName != nil {
		t.Fatalf("expected empty confidence row, got %+v", conf)
	}
}

func TestParseResult_MalformedItems(t *testing.T) {
	// Items entries must be objects; anything else fails the whole call
	_, err := ParseResult([]byte(`{"data": {"InvoiceId": "INV-1", "Items": ["not-an-object"]}}`))
	if err == nil {
		t.Fatal("expected error for non-object item entry")
	}

	_, err = ParseResult([]byte(`not json at all`))
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestResult_ConfidencePairsWithInvoiceID(t *testing.T) {
	res, err := ParseResult([]byte(`{
		"data": {"InvoiceId": "INV-9"},
		"dataConfidence": {"VendorName": 1.7}
	}`))
	if err != nil {
		t.Fatalf("ParseResult returned error: %v", err)
	}

	conf := res.FieldConfidence()
	if conf.InvoiceID != "INV-9" {
		t.Fatalf("expected confidence row keyed by INV-9, got %q", conf.InvoiceID)
	}
	// Out-of-range scores pass through untouched
	if conf.VendorName == nil || *conf.VendorName != 1.7 {
		t.Fatalf("expected score 1.7 preserved, got %v", conf.VendorName)
	}
}
