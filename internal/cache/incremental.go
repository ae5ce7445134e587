// Where: internal/cache/incremental.go
// What: ISR incremental cache over an ObjectStore.
// Why: Store failures degrade to a miss instead of failing the render.
package cache

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Entry is a cache hit.
type Entry struct {
	Value        []byte
	LastModified int64
}

// IncrementalCache reads and writes rendered pages and fetch results.
type IncrementalCache struct {
	store   ObjectStore
	prefix  string
	buildID string
	log     *zap.Logger
}

// NewIncrementalCache wires a store with the key layout settings.
func NewIncrementalCache(store ObjectStore, prefix, buildID string, log *zap.Logger) *IncrementalCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &IncrementalCache{store: store, prefix: prefix, buildID: buildID, log: log.Named("incremental")}
}

// Get returns the entry for key, or false on a miss or backend failure.
func (c *IncrementalCache) Get(ctx context.Context, key string, kind Kind) (Entry, bool) {
	objectKey := IncrementalKey(c.prefix, c.buildID, key, kind)
	obj, err := c.store.GetObject(ctx, objectKey)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.log.Warn("incremental cache read failed", zap.String("key", objectKey), zap.Error(err))
		}
		return Entry{}, false
	}
	entry := Entry{Value: obj.Body}
	if !obj.LastModified.IsZero() {
		entry.LastModified = obj.LastModified.UnixMilli()
	}
	return entry, true
}

// Set stores value under key. Failures are logged.
func (c *IncrementalCache) Set(ctx context.Context, key string, kind Kind, value []byte) {
	objectKey := IncrementalKey(c.prefix, c.buildID, key, kind)
	obj := Object{Body: value, ContentType: "application/json"}
	if err := c.store.PutObject(ctx, objectKey, obj); err != nil {
		c.log.Error("incremental cache write failed", zap.String("key", objectKey), zap.Error(err))
	}
}

// Delete removes key. Failures are logged.
func (c *IncrementalCache) Delete(ctx context.Context, key string, kind Kind) {
	objectKey := IncrementalKey(c.prefix, c.buildID, key, kind)
	if err := c.store.DeleteObject(ctx, objectKey); err != nil && !errors.Is(err, ErrNotFound) {
		c.log.Error("incremental cache delete failed", zap.String("key", objectKey), zap.Error(err))
	}
}
