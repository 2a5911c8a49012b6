// Package spool is the platform-conditional Spooler Driver and
// Spooler Monitor: submitting a rendered document to the named OS
// printer, and polling the OS spooler for a submitted job's status.
package spool

import (
	"fmt"

	"repairmind/printagent/internal/render"
)

// Handle is the opaque reference returned by Submit. OSJobID may be
// empty: some submission paths (silent-print PDF, some raw paths)
// don't expose one, and monitoring adapts accordingly.
type Handle struct {
	PrinterSystemName string
	OSJobID           string
	HasOSJobID        bool
}

// SubmitOptions carries submission hints. Only Raw is read by the
// platform submission paths; the page size and Landscape fields are
// carried along but no platform passes them to the printer.
type SubmitOptions struct {
	PageSizeMicronsW int
	PageSizeMicronsH int
	Landscape        bool
	Raw              bool
}

// SubmitError wraps a spooler submission failure.
type SubmitError struct {
	PrinterSystemName string
	Reason            string
	Err               error
}

func (e *SubmitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("spool submit to %s: %s: %v", e.PrinterSystemName, e.Reason, e.Err)
	}
	return fmt.Sprintf("spool submit to %s: %s", e.PrinterSystemName, e.Reason)
}

func (e *SubmitError) Unwrap() error { return e.Err }

// Submit dispatches a rendered Output to the named OS printer via the
// platform-specific submission path. Stream outputs (ESC/POS, ZPL,
// raw) go direct-to-driver; file outputs (PDF, HTML) go through the
// platform's document print path.
func Submit(printerSystemName string, out *render.Output, opts SubmitOptions) (*Handle, error) {
	if out.Kind == render.KindStream {
		return submitStream(printerSystemName, out.Stream, opts)
	}
	return submitFile(printerSystemName, out.FilePath, opts)
}
