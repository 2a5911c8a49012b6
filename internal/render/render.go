// Package render turns a semantic print Job plus a printer Descriptor
// into a byte stream or temporary file the Spooler Driver can submit.
// Thermal documents, raw documents and ZPL/raw-data labels produce an
// in-process byte stream; everything else produces a path to a
// scratch file.
package render

import (
	"fmt"
	"strings"

	"repairmind/printagent/internal/printer"
)

// DocumentType is the job's requested content kind.
type DocumentType string

const (
	DocReceipt      DocumentType = "receipt"
	DocTicket       DocumentType = "ticket"
	DocInvoice      DocumentType = "invoice"
	DocQuote        DocumentType = "quote"
	DocDeliveryNote DocumentType = "delivery_note"
	DocReport       DocumentType = "report"
	DocLabel        DocumentType = "label"
	DocBarcode      DocumentType = "barcode"
	DocQRCode       DocumentType = "qrcode"
	DocRaw          DocumentType = "raw"
	DocPDFRaw       DocumentType = "pdf_raw"
)

// LineItem is one row of a receipt/invoice items table.
type LineItem struct {
	Quantity    float64
	Description string
	UnitPrice   float64
	Total       float64
}

// Party is a company or client block on an invoice-family document.
type Party struct {
	Name    string
	Address string
	TaxID   string
	Phone   string
	Email   string
}

// Content is the shape-dependent payload carried by a Job. Only the
// fields relevant to DocumentType are populated by the caller; the
// rest are zero values.
type Content struct {
	// receipt / ticket
	StoreName    string
	StoreAddress string
	TicketNumber string
	Timestamp    string
	ClientName   string
	ClientPhone  string
	Footer       string

	// invoice / quote / delivery_note / report
	DocumentNumber string
	Company        Party
	Client         Party

	// shared by receipt family and invoice family
	Items []LineItem
	Total float64

	// pass-through sources (invoice family, label family, pdf_raw)
	PDFURL    string
	PDFBase64 string

	// label / barcode / qrcode
	ZPL         string
	Title       string
	Subtitle    string
	SKU         string
	Price       string
	BarcodeText string

	// raw / label-family raw device stream
	RawData string
	Data    string
}

// Options carries caller-supplied layout hints; zero values mean
// "use the document type's default".
type Options struct {
	PaperSize     string
	Margins       string
	LabelWidthMm  float64
	LabelHeightMm float64
	Doctype       string
}

// Job is the renderer's input: a job id for scratch-file naming, the
// requested document type, its content, and layout options.
type Job struct {
	ID           string
	DocumentType DocumentType
	Content      Content
	Options      Options
}

// OutputKind distinguishes an in-process command stream (thermal)
// from a file the spooler driver reads from disk.
type OutputKind string

const (
	KindStream OutputKind = "stream"
	KindFile   OutputKind = "file"
)

// Output is what Render produces: either Stream bytes ready to hand
// the Spooler Driver directly, or FilePath pointing at a scratch file
// the driver submits by path.
type Output struct {
	Kind     OutputKind
	Stream   []byte
	FilePath string
}

// RenderError wraps a rendering failure with a short reason. No
// retries are initiated here; the queue decides what happens next.
type RenderError struct {
	JobID  string
	Reason string
	Err    error
}

func (e *RenderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("render job %s: %s: %v", e.JobID, e.Reason, e.Err)
	}
	return fmt.Sprintf("render job %s: %s", e.JobID, e.Reason)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Render dispatches a Job to the document-type-specific builder,
// selecting a thermal dialect from descriptor.SystemName when the
// document type routes to a command stream.
func Render(job Job, descriptor printer.Descriptor) (*Output, error) {
	switch job.DocumentType {
	case DocReceipt, DocTicket:
		return renderReceipt(job, descriptor)

	case DocInvoice, DocQuote, DocDeliveryNote, DocReport:
		if job.Content.PDFURL != "" || job.Content.PDFBase64 != "" {
			return renderPDFPassthrough(job)
		}
		return renderStructuredPDF(job)

	case DocPDFRaw:
		return renderPDFPassthrough(job)

	case DocLabel, DocBarcode, DocQRCode:
		return renderLabel(job)

	case DocRaw:
		return renderRawStream(job)

	default:
		return nil, &RenderError{JobID: job.ID, Reason: fmt.Sprintf("unknown document type %q", job.DocumentType)}
	}
}

// thermalDialect selects the ESC/POS builder family by scanning the
// printer's system name, per the enumerator contract: "star"/"tsp"
// implies STAR, everything else is EPSON.
func thermalDialect(systemName string) string {
	lower := strings.ToLower(systemName)
	if strings.Contains(lower, "star") || strings.Contains(lower, "tsp") {
		return "star"
	}
	return "epson"
}
