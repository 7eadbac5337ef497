// Package aggregate implements the Result Aggregator: it turns a fleet's
// per-instance logs and statuses into a flat text report (one banner per
// instance) and a structured mapping, with no deduplication or parsing of
// tool-specific output.
package aggregate
