// Package store implements the Artifact Store: a thin, stateless wrapper
// over the Cloud Adapter's blob operations. Every artifact is keyed by a
// fresh version-4 UUID minted at upload time; that identifier is the only
// handle callers ever see.
package store
