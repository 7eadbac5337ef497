package aggregate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merabytes/acido/pkg/acido"
)

func TestBuild_OneBannerPerInstance(t *testing.T) {
	results := []InstanceResult{
		{Name: "fleet-group-1-inst-2", Status: acido.InstanceSucceeded, Log: "second log\n"},
		{Name: "fleet-group-1-inst-1", Status: acido.InstanceSucceeded, Log: "first log\n"},
	}

	report, err := Build(results, "")
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(report.Text, "---")/2)
	assert.True(t, strings.Index(report.Text, "fleet-group-1-inst-1") < strings.Index(report.Text, "fleet-group-1-inst-2"))
}

func TestBuild_ConcatenationMatchesBodies(t *testing.T) {
	results := []InstanceResult{
		{Name: "a", Status: acido.InstanceSucceeded, Log: "alpha\n"},
		{Name: "b", Status: acido.InstanceFailed, Log: "beta\n"},
	}

	report, err := Build(results, "")
	require.NoError(t, err)

	var bodies strings.Builder
	bodies.WriteString(results[0].Log)
	bodies.WriteString(results[1].Log)

	var stripped strings.Builder
	for _, line := range strings.Split(report.Text, "\n") {
		if strings.HasPrefix(line, "---") {
			continue
		}
		if line == "" {
			continue
		}
		stripped.WriteString(line)
		stripped.WriteByte('\n')
	}

	assert.Equal(t, bodies.String(), stripped.String())
}

func TestBuild_StructuredMapping(t *testing.T) {
	results := []InstanceResult{
		{Name: "inst-1", Status: acido.InstanceTimedOut, Log: "partial\n"},
	}

	report, err := Build(results, "")
	require.NoError(t, err)

	assert.Equal(t, acido.InstanceTimedOut, report.Status["inst-1"])
	assert.Equal(t, "partial\n", report.Logs["inst-1"])
}

func TestBuild_WritesOutputFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.txt")

	_, err := Build([]InstanceResult{{Name: "inst-1", Status: acido.InstanceSucceeded, Log: "ok\n"}}, path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "--- inst-1 ---")
	assert.Contains(t, string(data), "ok")
}
