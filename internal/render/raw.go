package render

import "encoding/base64"

// renderRawStream handles the raw document type: content.rawData or
// content.data, string or base64-encoded bytes. Fails if neither is
// present.
func renderRawStream(job Job) (*Output, error) {
	c := job.Content
	raw := c.RawData
	if raw == "" {
		raw = c.Data
	}
	if raw == "" {
		return nil, &RenderError{JobID: job.ID, Reason: "raw document has neither rawData nor data"}
	}

	if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil {
		return &Output{Kind: KindStream, Stream: decoded}, nil
	}
	return &Output{Kind: KindStream, Stream: []byte(raw)}, nil
}
