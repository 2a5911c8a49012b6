//go:build !windows && !linux && !darwin
// +build !windows,!linux,!darwin

package printer

import "fmt"

// listPrinters returns an error on platforms with no wired printer
// service. No BSD member of the example corpus exercises a printer
// service, so there is nothing to ground a listing on here.
func listPrinters() ([]rawPrinter, error) {
	return nil, fmt.Errorf("printer enumeration is not supported on this platform")
}
