package sharder

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitLines_ExactDivision(t *testing.T) {
	lines := []string{"a", "b", "c", "d", "e", "f"}
	shards := SplitLines(lines, 3)

	require.Len(t, shards, 3)
	for _, s := range shards {
		assert.Equal(t, 2, bytes.Count(s, []byte("\n")))
	}
}

func TestSplitLines_RemainderGoesToLeadingShards(t *testing.T) {
	lines := []string{"1", "2", "3", "4", "5", "6", "7"}
	shards := SplitLines(lines, 3)

	require.Len(t, shards, 3)
	assert.Equal(t, 3, bytes.Count(shards[0], []byte("\n")))
	assert.Equal(t, 2, bytes.Count(shards[1], []byte("\n")))
	assert.Equal(t, 2, bytes.Count(shards[2], []byte("\n")))
}

func TestSplitLines_FewerLinesThanShards_ProducesEmptyShards(t *testing.T) {
	lines := []string{"only"}
	shards := SplitLines(lines, 4)

	require.Len(t, shards, 4)
	assert.Equal(t, []byte("only\n"), shards[0])
	for _, s := range shards[1:] {
		assert.Empty(t, s)
	}
}

func TestSplitLines_PreservesOrderAndUnion(t *testing.T) {
	lines := []string{"one", "two", "three", "four", "five"}
	shards := SplitLines(lines, 2)

	var rejoined []byte
	for _, s := range shards {
		rejoined = append(rejoined, s...)
	}

	assert.Equal(t, "one\ntwo\nthree\nfour\nfive\n", string(rejoined))
}

func TestSplitLines_ShardSizesDifferByAtMostOne(t *testing.T) {
	n, k := 97, 10
	lines := make([]string, n)
	for i := range lines {
		lines[i] = strconv.Itoa(i)
	}

	shards := SplitLines(lines, k)
	require.Len(t, shards, k)

	min, max := -1, -1
	for _, s := range shards {
		c := bytes.Count(s, []byte("\n"))
		if min == -1 || c < min {
			min = c
		}
		if c > max {
			max = c
		}
	}
	assert.LessOrEqual(t, max-min, 1)
}

func TestSplit_ReadsFileAndMatchesSplitLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "input.txt")
	content := "alpha\nbeta\ngamma\ndelta\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	shards, err := Split(path, 2)
	require.NoError(t, err)
	require.Len(t, shards, 2)

	want := SplitLines([]string{"alpha", "beta", "gamma", "delta"}, 2)
	assert.Equal(t, want, shards)
}

func TestSplit_InvalidK(t *testing.T) {
	_, err := Split("does-not-matter", 0)
	assert.Error(t, err)
}
