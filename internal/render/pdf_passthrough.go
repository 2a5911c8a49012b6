package render

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

const (
	pdfDownloadTimeout = 30 * time.Second
	pdfMaxRedirects    = 5
)

// renderPDFPassthrough materializes a pre-rendered PDF — downloaded
// from content.PDFURL (30s timeout, ≤5 redirects, matching the
// bounded-retry/timeout discipline the auto-updater applies to its
// own downloads) or decoded from content.PDFBase64 — to a scratch
// file, then validates/repairs it with pdfcpu before handing it to
// the spooler driver.
func renderPDFPassthrough(job Job) (*Output, error) {
	path, err := scratchPath(job.ID, ".pdf")
	if err != nil {
		return nil, &RenderError{JobID: job.ID, Reason: "scratch path", Err: err}
	}

	switch {
	case job.Content.PDFURL != "":
		if err := downloadPDF(job.Content.PDFURL, path); err != nil {
			return nil, &RenderError{JobID: job.ID, Reason: "pdf download failed", Err: err}
		}
	case job.Content.PDFBase64 != "":
		if err := writeBase64PDF(job.Content.PDFBase64, path); err != nil {
			return nil, &RenderError{JobID: job.ID, Reason: "pdf decode failed", Err: err}
		}
	default:
		return nil, &RenderError{JobID: job.ID, Reason: "no pdfUrl or pdfBase64 present"}
	}

	if err := api.ValidateFile(path, nil); err != nil {
		if repairErr := api.OptimizeFile(path, path, nil); repairErr != nil {
			return nil, &RenderError{JobID: job.ID, Reason: "pdf validation and repair both failed", Err: err}
		}
	}

	scheduleCleanup(path)
	return &Output{Kind: KindFile, FilePath: path}, nil
}

func downloadPDF(url, destPath string) error {
	client := &http.Client{
		Timeout: pdfDownloadTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > pdfMaxRedirects {
				return fmt.Errorf("stopped after %d redirects", pdfMaxRedirects)
			}
			return nil
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), pdfDownloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}

	tmp := destPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, destPath)
}

func writeBase64PDF(encoded, destPath string) error {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return err
	}
	tmp := destPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, destPath)
}
