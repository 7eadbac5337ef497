// Package detector implements the Log Completion Detector: a cooperative,
// per-instance polling loop that watches a container's log tail for the
// completion sentinel "ACIDO_DONE=<uuid>" and reports success, failure, or
// timeout. The sentinel is used instead of a provider-reported terminal
// state because container-service providers typically report "Succeeded"
// only on provisioning, not on the user process's exit — the log sentinel
// is the only signal that is portable across providers.
package detector
