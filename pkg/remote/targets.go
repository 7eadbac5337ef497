package remote

import (
	"fmt"
	"os"
	"strings"
)

// writeTargetsFile materializes a `targets` array as a newline-delimited
// temp file so it can be handed to the Input Sharder the same way a
// CLI-supplied --input-file is. The returned cleanup func removes the file
// and must be called once the fleet operation using it has completed.
func writeTargetsFile(targets []string) (path string, cleanup func(), err error) {
	f, err := os.CreateTemp("", "acido-targets-*.txt")
	if err != nil {
		return "", nil, fmt.Errorf("remote: create targets file: %w", err)
	}

	if _, err := f.WriteString(strings.Join(targets, "\n") + "\n"); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("remote: write targets file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("remote: close targets file: %w", err)
	}

	name := f.Name()
	return name, func() { os.Remove(name) }, nil
}
