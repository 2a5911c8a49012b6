package orchestrator

import (
	"testing"

	"repairmind/printagent/internal/queue"
	"repairmind/printagent/internal/session"
)

func TestWireJobToQueueJobPreservesRoutingAndOpaquePayload(t *testing.T) {
	wj := session.WireJob{
		ID:                "J1",
		PrinterSystemName: "TM-T88V",
		DocumentType:      "receipt",
		Priority:          "urgent",
		Content:           map[string]interface{}{"storeName": "Acme"},
		Options:           map[string]interface{}{"paperSize": "80mm"},
	}

	job, opts := wireJobToQueueJob(wj)
	if job.ID != "J1" || job.PrinterSystemName != "TM-T88V" || job.DocumentType != "receipt" {
		t.Fatalf("unexpected job: %+v", job)
	}
	if opts.Priority != queue.PriorityUrgent {
		t.Fatalf("expected urgent priority, got %q", opts.Priority)
	}
	if job.Content["storeName"] != "Acme" {
		t.Fatalf("expected content to pass through untouched, got %+v", job.Content)
	}
}

func TestContentFromDecodesReceiptFields(t *testing.T) {
	raw := map[string]interface{}{
		"storeName": "Acme Repairs",
		"items": []interface{}{
			map[string]interface{}{"quantity": 2.0, "description": "Screen", "price": 49.5},
		},
		"total": 99.0,
	}

	c := contentFrom(raw)
	if c.StoreName != "Acme Repairs" {
		t.Fatalf("expected store name, got %q", c.StoreName)
	}
	if len(c.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(c.Items))
	}
	item := c.Items[0]
	if item.Quantity != 2 || item.UnitPrice != 49.5 {
		t.Fatalf("unexpected item: %+v", item)
	}
	if item.Total != 99.0 {
		t.Fatalf("expected item total to default to quantity*price, got %v", item.Total)
	}
	if c.Total != 99.0 {
		t.Fatalf("expected content total 99.0, got %v", c.Total)
	}
}

func TestContentFromDecodesInvoicePartyBlocks(t *testing.T) {
	raw := map[string]interface{}{
		"documentNumber": "INV-1",
		"company":        map[string]interface{}{"name": "Acme", "taxId": "FR123"},
		"client":         map[string]interface{}{"name": "Client Co"},
	}

	c := contentFrom(raw)
	if c.DocumentNumber != "INV-1" {
		t.Fatalf("expected document number, got %q", c.DocumentNumber)
	}
	if c.Company.Name != "Acme" || c.Company.TaxID != "FR123" {
		t.Fatalf("unexpected company block: %+v", c.Company)
	}
	if c.Client.Name != "Client Co" {
		t.Fatalf("unexpected client block: %+v", c.Client)
	}
}

func TestSubmitOptionsFromConvertsMillimetersToMicrons(t *testing.T) {
	entry := &queue.Entry{
		Job: queue.Job{
			Options: map[string]interface{}{"labelWidthMm": 50.0, "labelHeightMm": 25.0},
		},
	}

	so := submitOptionsFrom(entry)
	if so.PageSizeMicronsW != 50000 || so.PageSizeMicronsH != 25000 {
		t.Fatalf("unexpected submit options: %+v", so)
	}
}

func TestSubmitOptionsFromIsZeroWhenNoLabelDimensionsGiven(t *testing.T) {
	entry := &queue.Entry{Job: queue.Job{Options: map[string]interface{}{"paperSize": "80mm"}}}
	so := submitOptionsFrom(entry)
	if so.PageSizeMicronsW != 0 || so.PageSizeMicronsH != 0 {
		t.Fatalf("expected zero-value submit options, got %+v", so)
	}
}
