// Package sharder implements the Input Sharder: it partitions an input
// file's lines into a fixed number of contiguous, newline-terminated
// shards, preserving line order and producing an empty shard rather than
// eliding one when there are fewer lines than shards.
package sharder
