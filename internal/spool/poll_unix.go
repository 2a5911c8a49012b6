//go:build linux || darwin
// +build linux darwin

package spool

import "strings"

// pollJobStatus returns the observed OS status for osJobID on
// printerSystemName in the vocabulary monitor.go's state machine
// understands: "MISSING", "PRINTING", "PRINTED", "CANCELLED",
// "ABORTED", "BLOCKED", "ERROR", "OFFLINE", "PAPEROUT".
//
// CUPS's lpstat -o doesn't expose PRINTED/CANCELLED distinctly for a
// job that has left the queue — both simply stop appearing — so a
// missing job is reported as "MISSING" and the monitor's own
// sawPrinting/hasError bookkeeping (per §4.4) disambiguates it.
func pollJobStatus(printerSystemName, osJobID string) (string, error) {
	line, err := queryJobLine(printerSystemName, osJobID)
	if err != nil {
		return "", err
	}
	if line == "" {
		return "MISSING", nil
	}
	if strings.Contains(line, "being held") {
		return "BLOCKED", nil
	}
	return "PRINTING", nil
}
