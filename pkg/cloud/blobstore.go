package cloud

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/merabytes/acido/pkg/acido"
)

// BlobStore is the Cloud Adapter's facade over the blob-store API: the
// Artifact Store's only dependency. One container holds every artifact for
// the lifetime of a process.
type BlobStore struct {
	client        *azblob.Client
	containerName string
}

// NewBlobStore builds a BlobStore against serviceURL (e.g.
// https://<account>.blob.core.windows.net) using cred, storing artifacts
// under containerName.
func NewBlobStore(cred azcore.TokenCredential, serviceURL, containerName string) (*BlobStore, error) {
	client, err := azblob.NewClient(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("new blob client: %w", err)
	}
	return &BlobStore{client: client, containerName: containerName}, nil
}

// Upload writes data under blobName, creating the container on first use.
func (b *BlobStore) Upload(ctx context.Context, blobName string, data []byte) error {
	_, err := b.client.UploadBuffer(ctx, b.containerName, blobName, data, nil)
	if err != nil {
		if isContainerNotFound(err) {
			if _, createErr := b.client.CreateContainer(ctx, b.containerName, nil); createErr != nil && !isContainerExists(createErr) {
				return classify("upload_blob", createErr)
			}
			_, err = b.client.UploadBuffer(ctx, b.containerName, blobName, data, nil)
		}
		if err != nil {
			return classify("upload_blob", err)
		}
	}
	return nil
}

// Download reads the full contents of blobName.
func (b *BlobStore) Download(ctx context.Context, blobName string) ([]byte, error) {
	resp, err := b.client.DownloadStream(ctx, b.containerName, blobName, nil)
	if err != nil {
		return nil, classify("download_blob", err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, classify("download_blob", err)
	}
	return buf.Bytes(), nil
}

// Delete removes blobName. A NotFound error is swallowed.
func (b *BlobStore) Delete(ctx context.Context, blobName string) error {
	_, err := b.client.DeleteBlob(ctx, b.containerName, blobName, nil)
	if err != nil {
		ce := classify("delete_blob", err)
		if ce.Class == acido.ClassNotFound {
			return nil
		}
		return ce
	}
	return nil
}

func isContainerNotFound(err error) bool {
	ce := classify("probe", err)
	return ce.Class == acido.ClassNotFound
}

func isContainerExists(err error) bool {
	ce := classify("probe", err)
	return ce.Class == acido.ClassConflict
}
