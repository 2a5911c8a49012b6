package render

import (
	"fmt"

	"repairmind/printagent/internal/printer"
)

const receiptRule = "------------------------------------------------"

// renderReceipt lays out a receipt or ticket and encodes it through
// the dialect-appropriate ESC/POS builder. Layout order follows the
// document-type contract: centered store name (double-height bold),
// optional address, rule, centered ticket number, left timestamp,
// optional client/phone, rule, item lines, rule, right-aligned
// total, optional footer, thank-you line only if items are present,
// paper cut.
func renderReceipt(job Job, descriptor printer.Descriptor) (*Output, error) {
	c := job.Content
	b := newEscposBuilder(thermalDialect(descriptor.SystemName))

	if c.StoreName != "" {
		b.AlignCenter()
		b.Bold(true)
		b.DoubleHeight(true)
		b.Text(c.StoreName)
		b.DoubleHeight(false)
		b.Bold(false)
	}
	if c.StoreAddress != "" {
		b.AlignCenter()
		b.Text(c.StoreAddress)
	}
	b.Rule()

	if c.TicketNumber != "" {
		b.AlignCenter()
		b.Text(c.TicketNumber)
	}

	b.AlignLeft()
	if c.Timestamp != "" {
		b.Text(c.Timestamp)
	}
	if c.ClientName != "" {
		line := c.ClientName
		if c.ClientPhone != "" {
			line = fmt.Sprintf("%s - %s", c.ClientName, c.ClientPhone)
		}
		b.Text(line)
	}
	b.Rule()

	for _, item := range c.Items {
		b.AlignLeft()
		desc := fmt.Sprintf("%gx %s", item.Quantity, item.Description)
		price := fmt.Sprintf("%.2f", item.Total)
		b.Text(padLine(desc, price))
	}
	b.Rule()

	if c.Total != 0 || len(c.Items) > 0 {
		b.AlignRight()
		b.Bold(true)
		b.Text(fmt.Sprintf("TOTAL: %.2f EUR", c.Total))
		b.Bold(false)
	}

	if c.Footer != "" {
		b.AlignCenter()
		b.Text(c.Footer)
	}
	if len(c.Items) > 0 {
		b.AlignCenter()
		b.Text("Merci de votre visite !")
	}

	b.Feed(3)
	b.Cut()

	return &Output{Kind: KindStream, Stream: b.Bytes()}, nil
}

// padLine right-pads left against right within a fixed receipt
// width, the conventional 48-column thermal paper line.
func padLine(left, right string) string {
	const width = 48
	pad := width - len(left) - len(right)
	if pad < 1 {
		pad = 1
	}
	out := left
	for i := 0; i < pad; i++ {
		out += " "
	}
	return out + right
}
