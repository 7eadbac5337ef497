// Package cloud implements the Cloud Adapter: a narrow, typed facade over
// the container-service, blob-store, and virtual-network management APIs
// the fleet orchestrator depends on. Every provider call is synchronous
// from the caller's perspective — asynchronous provider operations (group
// creation, deletion) are awaited here via SDK pollers — and every error
// is classified into the taxonomy in pkg/acido before it reaches a caller.
package cloud
