package render

import (
	"bytes"
	"fmt"
	"strings"
)

// pdfWriter is a minimal single-page PDF generator for the
// structured-field documents (invoice/quote/delivery_note/report).
// pdfcpu is a manipulation library (validate/optimize/merge), not a
// layout engine, and no example repo in the corpus builds a PDF from
// scratch — this writer is a deliberate, documented standard-library
// fallback for that one concern (see DESIGN.md).
type pdfWriter struct {
	pageWidth, pageHeight float64
	ops                   bytes.Buffer
}

func newPDFWriter(widthPt, heightPt float64) *pdfWriter {
	return &pdfWriter{pageWidth: widthPt, pageHeight: heightPt}
}

// text draws a left-anchored line at (x, y) in points from the
// bottom-left origin, using 12pt Helvetica scaled by size/12.
func (w *pdfWriter) text(x, y, size float64, bold bool, line string) {
	font := "/F1"
	if bold {
		font = "/F2"
	}
	fmt.Fprintf(&w.ops, "BT %s %.1f Tf %.2f %.2f Td (%s) Tj ET\n",
		font, size, x, y, escapePDFString(line))
}

// rule draws a horizontal line at height y across the printable
// width, inset by margin on both sides.
func (w *pdfWriter) rule(y, margin float64) {
	fmt.Fprintf(&w.ops, "%.2f w %.2f %.2f m %.2f %.2f l S\n",
		0.75, margin, y, w.pageWidth-margin, y)
}

func escapePDFString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `(`, `\(`)
	s = strings.ReplaceAll(s, `)`, `\)`)
	return s
}

// bytesOut assembles the minimal object graph (catalog, page tree,
// one page, two fonts, the content stream) into a valid single-page
// PDF with its cross-reference table and trailer.
func (w *pdfWriter) bytesOut() []byte {
	var buf bytes.Buffer
	offsets := make([]int, 0, 6)

	write := func(s string) {
		buf.WriteString(s)
	}
	addObj := func(body string) {
		offsets = append(offsets, buf.Len())
		write(body)
	}

	write("%PDF-1.4\n")

	addObj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	addObj("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")
	addObj(fmt.Sprintf(
		"3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %.2f %.2f] "+
			"/Resources << /Font << /F1 5 0 R /F2 6 0 R >> >> /Contents 4 0 R >>\nendobj\n",
		w.pageWidth, w.pageHeight))

	content := w.ops.String()
	addObj(fmt.Sprintf("4 0 obj\n<< /Length %d >>\nstream\n%sendstream\nendobj\n", len(content), content))

	addObj("5 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")
	addObj("6 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica-Bold >>\nendobj\n")

	xrefStart := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF",
		len(offsets)+1, xrefStart)

	return buf.Bytes()
}
