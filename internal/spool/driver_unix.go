//go:build linux || darwin
// +build linux darwin

package spool

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

var requestIDRegex = regexp.MustCompile(`request id is (\S+)`)

// submitFile runs `lp -d <name> <file>` and parses "request id is
// <name>-<n>" from its output to recover the spooler job id.
func submitFile(printerSystemName, path string, opts SubmitOptions) (*Handle, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	args := []string{"-d", printerSystemName, path}
	if opts.Raw {
		args = []string{"-d", printerSystemName, "-o", "raw", path}
	}

	out, err := exec.CommandContext(ctx, "lp", args...).CombinedOutput()
	if err != nil {
		return nil, &SubmitError{PrinterSystemName: printerSystemName, Reason: "lp failed", Err: fmt.Errorf("%s: %w", string(out), err)}
	}

	matches := requestIDRegex.FindStringSubmatch(string(out))
	if matches == nil {
		return &Handle{PrinterSystemName: printerSystemName}, nil
	}
	return &Handle{PrinterSystemName: printerSystemName, OSJobID: matches[1], HasOSJobID: true}, nil
}

// submitStream writes the stream to a scratch file and submits it
// raw, since `lp` only accepts a file path, not stdin piping of an
// arbitrary command stream reliably across CUPS backends.
func submitStream(printerSystemName string, data []byte, opts SubmitOptions) (*Handle, error) {
	f, err := os.CreateTemp("", "repairmind-print-raw-*")
	if err != nil {
		return nil, &SubmitError{PrinterSystemName: printerSystemName, Reason: "scratch file for raw stream", Err: err}
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return nil, &SubmitError{PrinterSystemName: printerSystemName, Reason: "write raw stream", Err: err}
	}
	if err := f.Close(); err != nil {
		return nil, &SubmitError{PrinterSystemName: printerSystemName, Reason: "close raw stream", Err: err}
	}

	opts.Raw = true
	return submitFile(printerSystemName, path, opts)
}

// queryJobLine returns the lpstat -o line for osJobID on
// printerSystemName, or "" if it's not present (job missing).
func queryJobLine(printerSystemName, osJobID string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "lpstat", "-o", printerSystemName).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return "", nil // no jobs at all
		}
		return "", err
	}
	for _, line := range strings.Split(string(out), "\n") {
		if strings.HasPrefix(line, osJobID+" ") || strings.Contains(line, osJobID+" ") {
			return line, nil
		}
	}
	return "", nil
}
