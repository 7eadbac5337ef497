// Package log provides structured logging for acido using zerolog: a global
// logger configurable as console or JSON output, plus component- and
// entity-scoped child loggers used throughout the orchestrator.
package log
