package render

import (
	"bytes"
	"encoding/base64"
	"html/template"
	"image/png"
	"os"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/skip2/go-qrcode"
)

const (
	defaultLabelWidthMm  = 62
	defaultLabelHeightMm = 29
)

// renderLabel handles label/barcode/qrcode document types. First
// match wins: ZPL source, raw device data, PDF pass-through,
// otherwise an HTML label rendered at exact physical dimensions.
func renderLabel(job Job) (*Output, error) {
	c := job.Content

	if c.ZPL != "" {
		return &Output{Kind: KindStream, Stream: []byte(c.ZPL)}, nil
	}
	if c.RawData != "" {
		return &Output{Kind: KindStream, Stream: []byte(c.RawData)}, nil
	}
	if c.PDFURL != "" || c.PDFBase64 != "" {
		return renderPDFPassthrough(job)
	}
	return renderHTMLLabel(job)
}

var labelTemplate = template.Must(template.New("label").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><style>
  @page { size: {{.WidthMm}}mm {{.HeightMm}}mm landscape; margin: 0; }
  body { margin: 0; font-family: sans-serif; }
  .label { width: {{.WidthMm}}mm; height: {{.HeightMm}}mm; box-sizing: border-box;
           padding: 2mm; display: flex; flex-direction: column; justify-content: space-between; }
  .title { font-weight: bold; font-size: 4mm; }
  .subtitle { font-size: 3mm; }
  .row { display: flex; justify-content: space-between; align-items: center; }
  .sku { font-size: 2.5mm; }
  .price { font-weight: bold; font-size: 5mm; }
  img.code { height: 8mm; }
</style></head>
<body>
  <div class="label">
    <div class="title">{{.Title}}</div>
    {{if .Subtitle}}<div class="subtitle">{{.Subtitle}}</div>{{end}}
    <div class="row">
      {{if .CodeImageBase64}}<img class="code" src="data:image/png;base64,{{.CodeImageBase64}}">{{end}}
      <div class="sku">{{.SKU}}</div>
      {{if .Price}}<div class="price">{{.Price}}</div>{{end}}
    </div>
  </div>
</body></html>`))

type labelTemplateData struct {
	WidthMm, HeightMm float64
	Title, Subtitle   string
	SKU, Price        string
	CodeImageBase64   string
}

// renderHTMLLabel builds a static HTML document at exact physical
// dimensions carrying title/subtitle/SKU/price and a barcode or QR
// code image, for the spooler driver's offscreen-browser silent
// print path (Windows/macOS) to render.
func renderHTMLLabel(job Job) (*Output, error) {
	c := job.Content
	widthMm := job.Options.LabelWidthMm
	if widthMm == 0 {
		widthMm = defaultLabelWidthMm
	}
	heightMm := job.Options.LabelHeightMm
	if heightMm == 0 {
		heightMm = defaultLabelHeightMm
	}

	codeImage, err := encodeLabelCode(job.DocumentType, c.BarcodeText)
	if err != nil {
		return nil, &RenderError{JobID: job.ID, Reason: "code image encoding failed", Err: err}
	}

	data := labelTemplateData{
		WidthMm: widthMm, HeightMm: heightMm,
		Title: c.Title, Subtitle: c.Subtitle,
		SKU: c.SKU, Price: c.Price,
		CodeImageBase64: codeImage,
	}

	var buf bytes.Buffer
	if err := labelTemplate.Execute(&buf, data); err != nil {
		return nil, &RenderError{JobID: job.ID, Reason: "html template execution failed", Err: err}
	}

	path, err := scratchPath(job.ID, ".html")
	if err != nil {
		return nil, &RenderError{JobID: job.ID, Reason: "scratch path", Err: err}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return nil, &RenderError{JobID: job.ID, Reason: "write html label", Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		return nil, &RenderError{JobID: job.ID, Reason: "finalize html label", Err: err}
	}

	scheduleCleanup(path)
	return &Output{Kind: KindFile, FilePath: path}, nil
}

// encodeLabelCode renders a PNG for the label's scannable code:
// qrcode document types get a QR code, everything else (label,
// barcode) gets a Code128 linear barcode. Returns "" when there is
// no barcode text to encode.
func encodeLabelCode(docType DocumentType, text string) (string, error) {
	if text == "" {
		return "", nil
	}

	if docType == DocQRCode {
		png, err := qrcode.Encode(text, qrcode.Medium, 256)
		if err != nil {
			return "", err
		}
		return base64.StdEncoding.EncodeToString(png), nil
	}

	bc, err := code128.Encode(text)
	if err != nil {
		return "", err
	}
	scaled, err := barcode.Scale(bc, 300, 80)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
