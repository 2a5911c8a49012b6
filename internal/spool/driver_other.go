//go:build !windows && !linux && !darwin
// +build !windows,!linux,!darwin

package spool

import "fmt"

func submitFile(printerSystemName, path string, opts SubmitOptions) (*Handle, error) {
	return nil, &SubmitError{PrinterSystemName: printerSystemName, Reason: "spooler submission is not supported on this platform"}
}

func submitStream(printerSystemName string, data []byte, opts SubmitOptions) (*Handle, error) {
	return nil, &SubmitError{PrinterSystemName: printerSystemName, Reason: "spooler submission is not supported on this platform"}
}

func pollJobStatus(printerSystemName, osJobID string) (string, error) {
	return "", fmt.Errorf("spooler polling is not supported on this platform")
}
