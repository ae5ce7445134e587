// Where: internal/cache/image.go
// What: Optimized image cache.
// Why: Resized images are reused across instances keyed by (url, width, quality).
package cache

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// ImageCache reads and writes optimized images.
type ImageCache struct {
	store ObjectStore
	log   *zap.Logger
}

// NewImageCache wires an ObjectStore.
func NewImageCache(store ObjectStore, log *zap.Logger) *ImageCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &ImageCache{store: store, log: log.Named("image")}
}

// Get returns the cached image, or false on a miss or backend failure.
func (c *ImageCache) Get(ctx context.Context, url string, width, quality int) (Object, bool) {
	key := ImageKey(url, width, quality)
	obj, err := c.store.GetObject(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.log.Warn("image cache read failed", zap.String("key", key), zap.Error(err))
		}
		return Object{}, false
	}
	return obj, true
}

// Set stores an optimized image. Failures are logged.
func (c *ImageCache) Set(ctx context.Context, url string, width, quality int, obj Object) {
	key := ImageKey(url, width, quality)
	if obj.LastModified.IsZero() {
		obj.LastModified = time.Now()
	}
	if err := c.store.PutObject(ctx, key, obj); err != nil {
		c.log.Error("image cache write failed", zap.String("key", key), zap.Error(err))
	}
}
