package render

import (
	"fmt"
	"os"
	"strings"
)

const (
	a4WidthPt  = 595.28
	a4HeightPt = 841.89
	pdfMargin  = 50.0
)

var docTitles = map[DocumentType]string{
	DocInvoice:      "INVOICE",
	DocQuote:        "QUOTE",
	DocDeliveryNote: "DELIVERY NOTE",
	DocReport:       "REPORT",
}

// renderStructuredPDF builds an invoice/quote/delivery_note/report
// PDF from structured fields when no pdfUrl/pdfBase64 pass-through is
// present: header, document number, company block, client block,
// items table at fixed columns, total, footer.
func renderStructuredPDF(job Job) (*Output, error) {
	c := job.Content
	w := newPDFWriter(a4WidthPt, a4HeightPt)

	y := a4HeightPt - pdfMargin

	title := docTitles[job.DocumentType]
	if title == "" {
		title = strings.ToUpper(string(job.DocumentType))
	}
	w.text(pdfMargin, y, 20, true, title)
	if c.DocumentNumber != "" {
		w.text(a4WidthPt-pdfMargin-150, y, 12, false, "No. "+c.DocumentNumber)
	}
	y -= 30
	w.rule(y, pdfMargin)
	y -= 24

	y = writeParty(w, "From", c.Company, pdfMargin, y)
	y = writeParty(w, "To", c.Client, pdfMargin, y-10)
	y -= 10
	w.rule(y, pdfMargin)
	y -= 24

	// Items table header at fixed columns.
	colQty := pdfMargin
	colDesc := pdfMargin + 50
	colPrice := a4WidthPt - pdfMargin - 160
	colTotal := a4WidthPt - pdfMargin - 70

	w.text(colQty, y, 10, true, "Qty")
	w.text(colDesc, y, 10, true, "Description")
	w.text(colPrice, y, 10, true, "Unit price")
	w.text(colTotal, y, 10, true, "Total")
	y -= 16
	w.rule(y, pdfMargin)
	y -= 16

	for _, item := range c.Items {
		if y < pdfMargin+80 {
			break // single-page writer: truncate rather than overflow
		}
		w.text(colQty, y, 10, false, fmt.Sprintf("%g", item.Quantity))
		w.text(colDesc, y, 10, false, item.Description)
		w.text(colPrice, y, 10, false, fmt.Sprintf("%.2f", item.UnitPrice))
		w.text(colTotal, y, 10, false, fmt.Sprintf("%.2f", item.Total))
		y -= 16
	}

	y -= 10
	w.rule(y, pdfMargin)
	y -= 24
	w.text(colPrice, y, 12, true, "TOTAL:")
	w.text(colTotal, y, 12, true, fmt.Sprintf("%.2f EUR", c.Total))

	if c.Footer != "" {
		w.text(pdfMargin, pdfMargin, 9, false, c.Footer)
	}

	path, err := scratchPath(job.ID, ".pdf")
	if err != nil {
		return nil, &RenderError{JobID: job.ID, Reason: "scratch path", Err: err}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, w.bytesOut(), 0644); err != nil {
		return nil, &RenderError{JobID: job.ID, Reason: "write pdf", Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		return nil, &RenderError{JobID: job.ID, Reason: "finalize pdf", Err: err}
	}

	scheduleCleanup(path)
	return &Output{Kind: KindFile, FilePath: path}, nil
}

func writeParty(w *pdfWriter, label string, p Party, x, y float64) float64 {
	if p.Name == "" {
		return y
	}
	w.text(x, y, 11, true, label+":")
	y -= 14
	w.text(x, y, 10, false, p.Name)
	y -= 14
	if p.Address != "" {
		w.text(x, y, 10, false, p.Address)
		y -= 14
	}
	if p.TaxID != "" {
		w.text(x, y, 10, false, "Tax ID: "+p.TaxID)
		y -= 14
	}
	if p.Phone != "" || p.Email != "" {
		w.text(x, y, 10, false, strings.TrimSpace(p.Phone+" "+p.Email))
		y -= 14
	}
	return y
}
