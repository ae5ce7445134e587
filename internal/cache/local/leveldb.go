// Where: internal/cache/local/leveldb.go
// What: goleveldb-backed object and tag stores for local development.
// Why: Run the full cache path without any cloud account.
package local

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"github.com/poruru-code/opennext-azure/internal/cache"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const (
	tagIndex  = "tag/"
	pathIndex = "path/"
	separator = "\x00"
)

type record struct {
	Body         []byte
	ContentType  string
	LastModified time.Time
}

// ObjectStore implements cache.ObjectStore under a key namespace.
type ObjectStore struct {
	db        *leveldb.DB
	namespace string
}

// NewObjectStore stores objects under namespace + "/".
func NewObjectStore(db *leveldb.DB, namespace string) *ObjectStore {
	return &ObjectStore{db: db, namespace: namespace + "/"}
}

func (s *ObjectStore) key(key string) []byte {
	return []byte(s.namespace + key)
}

// GetObject reads an object.
func (s *ObjectStore) GetObject(_ context.Context, key string) (cache.Object, error) {
	raw, err := s.db.Get(s.key(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return cache.Object{}, cache.ErrNotFound
		}
		return cache.Object{}, fmt.Errorf("leveldb get %s: %w", key, err)
	}
	var rec record
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&rec); err != nil {
		return cache.Object{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return cache.Object{Body: rec.Body, ContentType: rec.ContentType, LastModified: rec.LastModified}, nil
}

// PutObject writes an object stamped with the current time.
func (s *ObjectStore) PutObject(_ context.Context, key string, obj cache.Object) error {
	rec := record{Body: obj.Body, ContentType: obj.ContentType, LastModified: obj.LastModified}
	if rec.LastModified.IsZero() {
		rec.LastModified = time.Now()
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.db.Put(s.key(key), buf.Bytes(), nil); err != nil {
		return fmt.Errorf("leveldb put %s: %w", key, err)
	}
	return nil
}

// DeleteObject removes an object.
func (s *ObjectStore) DeleteObject(_ context.Context, key string) error {
	if err := s.db.Delete(s.key(key), nil); err != nil {
		return fmt.Errorf("leveldb delete %s: %w", key, err)
	}
	return nil
}

// TagStore implements cache.TagStore with two key indexes.
type TagStore struct {
	db *leveldb.DB
}

// NewTagStore wraps db.
func NewTagStore(db *leveldb.DB) *TagStore {
	return &TagStore{db: db}
}

// QueryByTag scans the tag index.
func (s *TagStore) QueryByTag(_ context.Context, tag string) ([]cache.TagItem, error) {
	return s.scan(tagIndex + tag + separator)
}

// QueryByPath scans the path index.
func (s *TagStore) QueryByPath(_ context.Context, path string) ([]cache.TagItem, error) {
	return s.scan(pathIndex + path + separator)
}

func (s *TagStore) scan(prefix string) ([]cache.TagItem, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()
	var items []cache.TagItem
	for iter.Next() {
		var item cache.TagItem
		if err := gob.NewDecoder(bytes.NewReader(iter.Value())).Decode(&item); err != nil {
			return nil, fmt.Errorf("decode tag row: %w", err)
		}
		items = append(items, item)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("scan %q: %w", prefix, err)
	}
	return items, nil
}

// PutItems writes both index rows for every item in one batch.
func (s *TagStore) PutItems(_ context.Context, items []cache.TagItem) error {
	batch := new(leveldb.Batch)
	for _, item := range items {
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(item); err != nil {
			return fmt.Errorf("encode tag row: %w", err)
		}
		batch.Put([]byte(tagIndex+item.Tag+separator+item.Path), buf.Bytes())
		batch.Put([]byte(pathIndex+item.Path+separator+item.Tag), buf.Bytes())
	}
	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("leveldb write tags: %w", err)
	}
	return nil
}
