// Package acido defines the core data structures shared across the fleet
// orchestrator: fleets, container groups and instances, network stacks,
// input shards, and artifacts. Every other package in this module builds on
// these types rather than defining its own copies.
package acido
