package aggregate

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/merabytes/acido/pkg/acido"
)

// InstanceResult is one instance's terminal status and collected log,
// keyed by instance name by the caller.
type InstanceResult struct {
	Name   string
	Status acido.InstanceStatus
	Log    string
}

// Report holds both emitted forms of a fleet's results.
type Report struct {
	Text   string
	Status map[string]acido.InstanceStatus
	Logs   map[string]string
}

// Build assembles a Report from results, sorted by instance name so the
// text form is deterministic. If outputPath is non-empty, the text form is
// also written there.
func Build(results []InstanceResult, outputPath string) (Report, error) {
	sorted := make([]InstanceResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var b strings.Builder
	status := make(map[string]acido.InstanceStatus, len(sorted))
	logs := make(map[string]string, len(sorted))

	for _, r := range sorted {
		fmt.Fprintf(&b, "--- %s ---\n", r.Name)
		b.WriteString(r.Log)
		if !strings.HasSuffix(r.Log, "\n") {
			b.WriteByte('\n')
		}
		status[r.Name] = r.Status
		logs[r.Name] = r.Log
	}

	report := Report{Text: b.String(), Status: status, Logs: logs}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, []byte(report.Text), 0o644); err != nil {
			return report, fmt.Errorf("aggregate: write %s: %w", outputPath, err)
		}
	}

	return report, nil
}
