package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/merabytes/acido/pkg/log"
	"github.com/merabytes/acido/pkg/metrics"
)

// BlobStore is the subset of the Cloud Adapter's blob API the Artifact
// Store needs.
type BlobStore interface {
	Upload(ctx context.Context, blobName string, data []byte) error
	Download(ctx context.Context, blobName string) ([]byte, error)
	Delete(ctx context.Context, blobName string) error
}

// Store mints a fresh identifier per artifact and otherwise delegates
// straight to a BlobStore.
type Store struct {
	blobs BlobStore
}

// New builds a Store backed by blobs.
func New(blobs BlobStore) *Store {
	return &Store{blobs: blobs}
}

// Put uploads data under a fresh v4 UUID and returns that identifier.
func (s *Store) Put(ctx context.Context, data []byte) (string, error) {
	id := uuid.NewString()
	timer := metrics.NewTimer()

	if err := s.blobs.Upload(ctx, id, data); err != nil {
		metrics.ArtifactUploadsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("put artifact %s: %w", id, err)
	}

	metrics.ArtifactUploadsTotal.WithLabelValues("ok").Inc()
	timer.ObserveDurationVec(metrics.ArtifactUploadDuration, "input")
	log.WithComponent("store").Debug().Str("artifact_id", id).Int("bytes", len(data)).Msg("artifact uploaded")
	return id, nil
}

// Get downloads the artifact identified by id.
func (s *Store) Get(ctx context.Context, id string) ([]byte, error) {
	data, err := s.blobs.Download(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get artifact %s: %w", id, err)
	}
	return data, nil
}

// Delete removes the artifact identified by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.blobs.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete artifact %s: %w", id, err)
	}
	return nil
}
