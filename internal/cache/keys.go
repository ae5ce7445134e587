// Where: internal/cache/keys.go
// What: Persisted key layout for the incremental and image caches.
// Why: Keys are stored state; a new build must never read an older build's entries.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
)

// Kind is the incremental cache entry type.
type Kind string

const (
	KindCache     Kind = "cache"
	KindFetch     Kind = "fetch"
	KindComposite Kind = "composite"
)

// ParseKind maps a name to a Kind, defaulting to KindCache.
func ParseKind(value string) (Kind, error) {
	switch Kind(value) {
	case "", KindCache:
		return KindCache, nil
	case KindFetch:
		return KindFetch, nil
	case KindComposite:
		return KindComposite, nil
	default:
		return "", fmt.Errorf("unknown cache kind %q", value)
	}
}

const fetchSegment = "__fetch"

// IncrementalKey builds [{prefix}/][__fetch/][{buildID}/]{key}[.{kind}].
// Fetch entries carry no suffix.
func IncrementalKey(prefix, buildID, key string, kind Kind) string {
	name := key
	if kind != KindFetch {
		name = key + "." + string(kind)
	}
	parts := make([]string, 0, 4)
	if prefix != "" {
		parts = append(parts, prefix)
	}
	if kind == KindFetch {
		parts = append(parts, fetchSegment)
	}
	if buildID != "" {
		parts = append(parts, buildID)
	}
	parts = append(parts, name)
	return strings.TrimPrefix(path.Join(parts...), "/")
}

// ImageKey builds {hex(sha256(url))[0:16]}/w{width}_q{quality}.cache.
func ImageKey(url string, width, quality int) string {
	sum := sha256.Sum256([]byte(url))
	return fmt.Sprintf("%s/w%d_q%d.cache", hex.EncodeToString(sum[:])[:16], width, quality)
}

// BuildScoped prefixes value with the build identifier.
func BuildScoped(buildID, value string) string {
	if buildID == "" {
		return value
	}
	return buildID + "/" + value
}

// StripBuild removes the build prefix added by BuildScoped.
func StripBuild(buildID, value string) string {
	if buildID == "" {
		return value
	}
	return strings.TrimPrefix(value, buildID+"/")
}
