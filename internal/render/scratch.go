package render

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// scratchGrace is the minimum delay before a rendered temporary file
// is removed, independent of the print outcome, so the spooler has
// time to read it (spec: "≥15 s").
const scratchGrace = 15 * time.Second

// scratchDir returns the process-wide scratch directory for rendered
// output, creating it if necessary.
func scratchDir() (string, error) {
	dir := filepath.Join(os.TempDir(), "repairmind-print")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// scratchPath returns the scratch file path for a job id: <jobID><ext>
// inside the scratch directory. A re-rendered job gets the same path
// and overwrites the file of its previous attempt.
func scratchPath(jobID, ext string) (string, error) {
	dir, err := scratchDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fmt.Sprintf("%s%s", jobID, ext)), nil
}

// scheduleCleanup removes path after the grace period regardless of
// how the print attempt concludes.
func scheduleCleanup(path string) {
	time.AfterFunc(scratchGrace, func() {
		os.Remove(path)
	})
}
