// Where: internal/cache/azure/blob.go
// What: Azure Blob Storage object store.
// Why: Incremental and image cache entries live in block blobs.
package azure

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/poruru-code/opennext-azure/internal/cache"
)

// BlobStore implements cache.ObjectStore on one container.
type BlobStore struct {
	client    *azblob.Client
	container string
}

// NewBlobStore binds a client to a container.
func NewBlobStore(client *azblob.Client, container string) *BlobStore {
	return &BlobStore{client: client, container: container}
}

// GetObject downloads a blob.
func (s *BlobStore) GetObject(ctx context.Context, key string) (cache.Object, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return cache.Object{}, cache.ErrNotFound
		}
		return cache.Object{}, fmt.Errorf("download %s/%s: %w", s.container, key, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return cache.Object{}, fmt.Errorf("read %s/%s: %w", s.container, key, err)
	}
	obj := cache.Object{Body: body}
	if resp.ContentType != nil {
		obj.ContentType = *resp.ContentType
	}
	if resp.LastModified != nil {
		obj.LastModified = *resp.LastModified
	}
	return obj, nil
}

// PutObject uploads a block blob, replacing any previous version.
func (s *BlobStore) PutObject(ctx context.Context, key string, obj cache.Object) error {
	opts := &azblob.UploadBufferOptions{}
	if obj.ContentType != "" {
		contentType := obj.ContentType
		opts.HTTPHeaders = &blob.HTTPHeaders{BlobContentType: &contentType}
	}
	if _, err := s.client.UploadBuffer(ctx, s.container, key, obj.Body, opts); err != nil {
		return fmt.Errorf("upload %s/%s: %w", s.container, key, err)
	}
	return nil
}

// DeleteObject removes a blob.
func (s *BlobStore) DeleteObject(ctx context.Context, key string) error {
	if _, err := s.client.DeleteBlob(ctx, s.container, key, nil); err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return cache.ErrNotFound
		}
		return fmt.Errorf("delete %s/%s: %w", s.container, key, err)
	}
	return nil
}

// EnsureContainer creates a container when missing.
func EnsureContainer(ctx context.Context, client *azblob.Client, name string) error {
	if _, err := client.CreateContainer(ctx, name, nil); err != nil {
		if bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			return nil
		}
		return fmt.Errorf("create container %s: %w", name, err)
	}
	return nil
}
