// Where: internal/cache/tag.go
// What: Tag cache mapping revalidation tags to rendered paths.
// Why: revalidateTag must find every page that depends on a tag.
package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// TagCache scopes every tag and path by build identifier.
type TagCache struct {
	store   TagStore
	buildID string
	log     *zap.Logger
	now     func() time.Time
}

// NewTagCache wires a TagStore.
func NewTagCache(store TagStore, buildID string, log *zap.Logger) *TagCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &TagCache{store: store, buildID: buildID, log: log.Named("tag"), now: time.Now}
}

// GetByTag returns the paths tagged with tag. Failures yield nil.
func (c *TagCache) GetByTag(ctx context.Context, tag string) []string {
	items, err := c.store.QueryByTag(ctx, BuildScoped(c.buildID, tag))
	if err != nil {
		c.log.Warn("tag cache query by tag failed", zap.String("tag", tag), zap.Error(err))
		return nil
	}
	paths := make([]string, 0, len(items))
	for _, item := range items {
		paths = append(paths, StripBuild(c.buildID, item.Path))
	}
	return paths
}

// GetByPath returns the tags attached to path. Failures yield nil.
func (c *TagCache) GetByPath(ctx context.Context, path string) []string {
	items, err := c.store.QueryByPath(ctx, BuildScoped(c.buildID, path))
	if err != nil {
		c.log.Warn("tag cache query by path failed", zap.String("path", path), zap.Error(err))
		return nil
	}
	tags := make([]string, 0, len(items))
	for _, item := range items {
		tags = append(tags, StripBuild(c.buildID, item.Tag))
	}
	return tags
}

// GetLastModified returns -1 when any tag of path was revalidated after
// lastModified, otherwise lastModified. Failures keep lastModified.
func (c *TagCache) GetLastModified(ctx context.Context, path string, lastModified int64) int64 {
	items, err := c.store.QueryByPath(ctx, BuildScoped(c.buildID, path))
	if err != nil {
		c.log.Warn("tag cache last modified failed", zap.String("path", path), zap.Error(err))
		return lastModified
	}
	for _, item := range items {
		if item.RevalidatedAt > lastModified {
			return -1
		}
	}
	return lastModified
}

// WriteTags upserts tag/path rows. A zero RevalidatedAt means now.
func (c *TagCache) WriteTags(ctx context.Context, items []TagItem) {
	if len(items) == 0 {
		return
	}
	now := c.now().UnixMilli()
	scoped := make([]TagItem, 0, len(items))
	for _, item := range items {
		revalidatedAt := item.RevalidatedAt
		if revalidatedAt == 0 {
			revalidatedAt = now
		}
		scoped = append(scoped, TagItem{
			Tag:           BuildScoped(c.buildID, item.Tag),
			Path:          BuildScoped(c.buildID, item.Path),
			RevalidatedAt: revalidatedAt,
		})
	}
	if err := c.store.PutItems(ctx, scoped); err != nil {
		c.log.Error("tag cache write failed", zap.Int("items", len(items)), zap.Error(err))
	}
}
