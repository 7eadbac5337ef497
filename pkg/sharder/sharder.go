package sharder

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
)

// Split reads path as a sequence of lines and partitions them into k
// contiguous shards: the first (n mod k) shards hold ceil(n/k) lines, the
// rest hold floor(n/k). Line order is preserved across the whole sequence
// and within each shard. When n < k, the trailing shards are empty rather
// than omitted — callers always get exactly k shards back. Each returned
// shard is newline-terminated.
func Split(path string, k int) ([][]byte, error) {
	if k < 1 {
		return nil, fmt.Errorf("sharder: k must be >= 1, got %d", k)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sharder: open %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("sharder: read %s: %w", path, err)
	}

	return SplitLines(lines, k), nil
}

// SplitLines applies the same partitioning as Split directly to an
// in-memory line sequence, split out for testing without touching disk.
func SplitLines(lines []string, k int) [][]byte {
	n := len(lines)
	base := n / k
	rem := n % k

	shards := make([][]byte, k)
	idx := 0
	for i := 0; i < k; i++ {
		size := base
		if i < rem {
			size++
		}

		var buf bytes.Buffer
		for _, line := range lines[idx : idx+size] {
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
		shards[i] = buf.Bytes()
		idx += size
	}

	return shards
}
