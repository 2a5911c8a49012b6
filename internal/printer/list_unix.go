//go:build linux || darwin
// +build linux darwin

package printer

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

var (
	printerLineRegex = regexp.MustCompile(`^printer\s+(\S+)\s+(.*)$`)
	deviceLineRegex  = regexp.MustCompile(`^device\s+for\s+(\S+):\s+(.*)$`)
)

// listPrinters enumerates printers via CUPS's lpstat, the same tool
// the spooler uses to watch job state on this platform.
func listPrinters() ([]rawPrinter, error) {
	if _, err := exec.LookPath("lpstat"); err != nil {
		return nil, fmt.Errorf("lpstat not found: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "lpstat", "-p").Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return nil, nil // no printers configured
		}
		return nil, fmt.Errorf("lpstat -p: %w", err)
	}

	defaultName := defaultPrinterName(ctx)
	uris := deviceURIs(ctx)

	var raws []rawPrinter
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		matches := printerLineRegex.FindStringSubmatch(scanner.Text())
		if matches == nil {
			continue
		}
		name := matches[1]
		statusLine := matches[2]

		status := "unknown"
		switch {
		case strings.Contains(statusLine, "is idle"):
			status = "ready"
		case strings.Contains(statusLine, "now printing"):
			status = "printing"
		case strings.Contains(statusLine, "disabled"):
			status = "offline"
		}

		uri := uris[name]
		raws = append(raws, rawPrinter{
			name:      name,
			driver:    driverName(ctx, name),
			portName:  uri,
			deviceURI: uri,
			isDefault: name == defaultName,
			status:    status,
		})
	}
	return raws, nil
}

func defaultPrinterName(ctx context.Context) string {
	out, err := exec.CommandContext(ctx, "lpstat", "-d").Output()
	if err != nil {
		return ""
	}
	line := strings.TrimSpace(string(out))
	const prefix = "system default destination:"
	if strings.HasPrefix(line, prefix) {
		return strings.TrimSpace(strings.TrimPrefix(line, prefix))
	}
	return ""
}

func deviceURIs(ctx context.Context) map[string]string {
	out, err := exec.CommandContext(ctx, "lpstat", "-v").Output()
	if err != nil {
		return nil
	}
	result := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		matches := deviceLineRegex.FindStringSubmatch(scanner.Text())
		if matches != nil {
			result[matches[1]] = matches[2]
		}
	}
	return result
}

func driverName(ctx context.Context, name string) string {
	out, err := exec.CommandContext(ctx, "lpoptions", "-p", name, "-l").Output()
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(out), "\n") {
		if strings.Contains(strings.ToLower(line), "make") {
			return strings.TrimSpace(line)
		}
	}
	return ""
}
