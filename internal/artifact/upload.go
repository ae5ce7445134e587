package artifact

import (
	"context"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/poruru-code/opennext-azure/internal/staticassets"
	"go.uber.org/multierr"
)

// BlobUploader is the azblob.Client subset used for assets.
type BlobUploader interface {
	UploadBuffer(ctx context.Context, containerName string, blobName string, buffer []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error)
}

// UploadAssets copies every file under dir to container, named by its path
// relative to dir, with the cache policy the handler redirects with.
// It returns the number of uploaded files.
func UploadAssets(ctx context.Context, client BlobUploader, container, dir string) (int, error) {
	var uploaded int
	var errs error
	walkErr := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		payload, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		contentType := mime.TypeByExtension(path.Ext(name))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		cacheControl := staticassets.CacheControl("/" + name)
		_, err = client.UploadBuffer(ctx, container, name, payload, &azblob.UploadBufferOptions{
			HTTPHeaders: &blob.HTTPHeaders{
				BlobContentType:  &contentType,
				BlobCacheControl: &cacheControl,
			},
		})
		if err != nil {
			errs = multierr.Append(errs, err)
			return nil
		}
		uploaded++
		return nil
	})
	return uploaded, multierr.Combine(walkErr, errs)
}
