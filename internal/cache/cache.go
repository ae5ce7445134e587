// Where: internal/cache/cache.go
// What: Storage contracts shared by every cache backend.
// Why: The front caches only see these interfaces, never SDK clients.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a key has no value.
var ErrNotFound = errors.New("cache: not found")

// Object is a stored blob plus its metadata.
type Object struct {
	Body         []byte
	ContentType  string
	LastModified time.Time
}

// ObjectStore persists opaque objects by key.
type ObjectStore interface {
	GetObject(ctx context.Context, key string) (Object, error)
	PutObject(ctx context.Context, key string, obj Object) error
	DeleteObject(ctx context.Context, key string) error
}

// TagItem is one tag/path association. Tag and Path carry the build prefix when
// handed to a TagStore.
type TagItem struct {
	Tag           string `json:"tag"`
	Path          string `json:"path"`
	RevalidatedAt int64  `json:"revalidatedAt"`
}

// TagStore persists tag/path rows.
type TagStore interface {
	QueryByTag(ctx context.Context, tag string) ([]TagItem, error)
	QueryByPath(ctx context.Context, path string) ([]TagItem, error)
	PutItems(ctx context.Context, items []TagItem) error
}

// MessageBody identifies the page to regenerate.
type MessageBody struct {
	Host string `json:"host"`
	URL  string `json:"url"`
}

// Message is a revalidation request as written to the queue.
type Message struct {
	MessageBody            MessageBody `json:"MessageBody"`
	MessageDeduplicationID string      `json:"MessageDeduplicationId"`
	MessageGroupID         string      `json:"MessageGroupId"`
}

// Queue delivers revalidation messages.
type Queue interface {
	Send(ctx context.Context, msg Message) error
}
