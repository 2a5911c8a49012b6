package render

import (
	"bytes"

	"github.com/hennedo/escpos"
)

// epsonBuilder implements escposBuilder on top of hennedo/escpos,
// the EPSON-dialect command builder selected when the printer's
// system name doesn't mention "star"/"tsp".
type epsonBuilder struct {
	buf       *bytes.Buffer
	p         *escpos.Escpos
	finalized bool
}

func newEpsonBuilder() *epsonBuilder {
	buf := &bytes.Buffer{}
	return &epsonBuilder{buf: buf, p: escpos.New(buf)}
}

func (b *epsonBuilder) AlignCenter() { b.p.Justify(escpos.JustifyCenter) }
func (b *epsonBuilder) AlignLeft()   { b.p.Justify(escpos.JustifyLeft) }
func (b *epsonBuilder) AlignRight()  { b.p.Justify(escpos.JustifyRight) }

func (b *epsonBuilder) Bold(on bool) { b.p.Bold(on) }

func (b *epsonBuilder) DoubleHeight(on bool) {
	if on {
		b.p.Size(1, 2)
	} else {
		b.p.Size(1, 1)
	}
}

func (b *epsonBuilder) Text(line string) {
	b.p.Write(line + "\n")
}

func (b *epsonBuilder) Rule() {
	b.p.Write(receiptRule + "\n")
}

// Feed has no direct hennedo/escpos counterpart that takes a line
// count; the library only exposes a single-line LineFeed, so Feed
// calls it the requested number of times.
func (b *epsonBuilder) Feed(lines int) {
	for i := 0; i < lines; i++ {
		b.p.LineFeed()
	}
}

// Cut flushes the buffered job and appends the cut command in one
// call: hennedo/escpos has no standalone Cut, only PrintAndCut.
func (b *epsonBuilder) Cut() {
	b.p.PrintAndCut()
	b.finalized = true
}

func (b *epsonBuilder) Bytes() []byte {
	if !b.finalized {
		b.p.Print()
	}
	return b.buf.Bytes()
}
