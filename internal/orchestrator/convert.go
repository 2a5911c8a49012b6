package orchestrator

import (
	"repairmind/printagent/internal/queue"
	"repairmind/printagent/internal/render"
	"repairmind/printagent/internal/session"
	"repairmind/printagent/internal/spool"
)

// wireJobToQueueJob converts a job exactly as it arrived on the wire
// into the Job Queue's routing-only view. Content and Options stay
// opaque maps here — the queue never interprets them — and are only
// decoded into render types at execution time by renderJobFrom.
func wireJobToQueueJob(wj session.WireJob) (queue.Job, queue.EnqueueOptions) {
	job := queue.Job{
		ID:                wj.ID,
		PrinterSystemName: wj.PrinterSystemName,
		DocumentType:      wj.DocumentType,
		Content:           wj.Content,
		Options:           wj.Options,
	}
	opts := queue.EnqueueOptions{Priority: queue.Priority(wj.Priority)}
	return job, opts
}

// renderJobFrom decodes a queue entry's opaque Content/Options maps
// into the Document Renderer's typed Job. Fields absent from the
// wire payload simply stay at their zero value, per render.Content's
// own "only the relevant fields are populated" contract.
func renderJobFrom(entry *queue.Entry) render.Job {
	return render.Job{
		ID:           entry.ID,
		DocumentType: render.DocumentType(entry.DocumentType),
		Content:      contentFrom(entry.Content),
		Options:      optionsFrom(entry.Options),
	}
}

// submitOptionsFrom carries the label dimensions (mm) through to the
// Spooler Driver's micron-based SubmitOptions, when present.
func submitOptionsFrom(entry *queue.Entry) spool.SubmitOptions {
	opts := optionsFrom(entry.Options)
	var so spool.SubmitOptions
	if opts.LabelWidthMm > 0 {
		so.PageSizeMicronsW = int(opts.LabelWidthMm * 1000)
	}
	if opts.LabelHeightMm > 0 {
		so.PageSizeMicronsH = int(opts.LabelHeightMm * 1000)
	}
	return so
}

func contentFrom(c map[string]interface{}) render.Content {
	return render.Content{
		StoreName:      stringAt(c, "storeName"),
		StoreAddress:   stringAt(c, "storeAddress"),
		TicketNumber:   stringAt(c, "ticketNumber"),
		Timestamp:      stringAt(c, "timestamp"),
		ClientName:     stringAt(c, "clientName"),
		ClientPhone:    stringAt(c, "clientPhone"),
		Footer:         stringAt(c, "footer"),
		DocumentNumber: stringAt(c, "documentNumber"),
		Company:        partyFrom(mapAt(c, "company")),
		Client:         partyFrom(mapAt(c, "client")),
		Items:          itemsFrom(sliceAt(c, "items")),
		Total:          floatAt(c, "total"),
		PDFURL:         stringAt(c, "pdfUrl"),
		PDFBase64:      stringAt(c, "pdfBase64"),
		ZPL:            stringAt(c, "zpl"),
		Title:          stringAt(c, "title"),
		Subtitle:       stringAt(c, "subtitle"),
		SKU:            stringAt(c, "sku"),
		Price:          stringAt(c, "price"),
		BarcodeText:    stringAt(c, "barcodeText"),
		RawData:        stringAt(c, "rawData"),
		Data:           stringAt(c, "data"),
	}
}

func optionsFrom(o map[string]interface{}) render.Options {
	return render.Options{
		PaperSize:     stringAt(o, "paperSize"),
		Margins:       stringAt(o, "margins"),
		LabelWidthMm:  floatAt(o, "labelWidthMm"),
		LabelHeightMm: floatAt(o, "labelHeightMm"),
		Doctype:       stringAt(o, "doctype"),
	}
}

func partyFrom(m map[string]interface{}) render.Party {
	return render.Party{
		Name:    stringAt(m, "name"),
		Address: stringAt(m, "address"),
		TaxID:   stringAt(m, "taxId"),
		Phone:   stringAt(m, "phone"),
		Email:   stringAt(m, "email"),
	}
}

func itemsFrom(raw []interface{}) []render.LineItem {
	items := make([]render.LineItem, 0, len(raw))
	for _, r := range raw {
		im, ok := r.(map[string]interface{})
		if !ok {
			continue
		}
		qty := floatAt(im, "quantity")
		unitPrice := floatAt(im, "price")
		total := floatAt(im, "total")
		if total == 0 {
			total = qty * unitPrice
		}
		items = append(items, render.LineItem{
			Quantity:    qty,
			Description: stringAt(im, "description"),
			UnitPrice:   unitPrice,
			Total:       total,
		})
	}
	return items
}

func stringAt(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func floatAt(m map[string]interface{}, key string) float64 {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func mapAt(m map[string]interface{}, key string) map[string]interface{} {
	if m == nil {
		return nil
	}
	if v, ok := m[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}

func sliceAt(m map[string]interface{}, key string) []interface{} {
	if m == nil {
		return nil
	}
	if v, ok := m[key].([]interface{}); ok {
		return v
	}
	return nil
}
