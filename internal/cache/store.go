// Package cache defines the external key-value store used to bound
// outbound load in the Fetch and Retrieve nodes, and a generic
// Cached[T] helper layered on top of it.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"rssflow/internal/domain/payload"
)

// Store is the minimal external cache interface the nodes need. A
// concrete implementation is assumed to be multi-reader/multi-writer
// safe; this package does no in-process locking of its own.
type Store interface {
	Get(ctx context.Context, key string) (raw []byte, ok bool, err error)
	SetEx(ctx context.Context, key string, raw []byte, ttl time.Duration) error
}

// GetCachedValue reads key from store and, if present, decodes it as a
// payload.Cached[T]. A miss (key absent) returns (nil, false, nil); a
// store error or malformed JSON returns a non-nil error.
func GetCachedValue[T any](ctx context.Context, store Store, key string) (*payload.Cached[T], bool, error) {
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	var c payload.Cached[T]
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, false, err
	}
	return &c, true, nil
}

// SetCachedValue stamps v with the current time, JSON-encodes it as a
// payload.Cached[T], and writes it to store under key with the given
// store-level TTL. The store TTL is a safety upper bound; freshness is
// governed separately by the caller's semantic TTL via Cached.Fresh.
func SetCachedValue[T any](ctx context.Context, store Store, key string, v T, storeTTL time.Duration) error {
	c := payload.NewCached(v, time.Now())
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return store.SetEx(ctx, key, raw, storeTTL)
}

// DefaultStoreTTL is the safety upper bound applied to cache:{url}
// (feed) and retrieve:snippet:{...} entries.
const DefaultStoreTTL = 86400 * time.Second

// DefaultFreshnessTTL is the node-provided semantic freshness default:
// a cached value is re-evaluated against the node-provided freshness
// TTL (default 1h).
const DefaultFreshnessTTL = 1 * time.Hour
