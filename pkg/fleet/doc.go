// Package fleet implements the Fleet Controller: the central scheduler
// that validates a fleet request, shards its input, uploads the shards,
// plans placement across regions, provisions container groups, polls
// every instance to completion, aggregates the results, and (when asked)
// tears everything back down. It is the one package that wires the Cloud
// Adapter, Artifact Store, Input Sharder, Placement Planner, Log
// Completion Detector, and Result Aggregator together.
package fleet
