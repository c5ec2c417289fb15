// Package cache memoizes score and independence evaluations.
//
// # Local Cache
//
// [LocalCache] is the in-process cache every search consults. Entries are
// keyed by (target, canonical conditioning set) and are pure functions of
// that key, so they are never invalidated. Concurrent misses on the same key
// are collapsed with singleflight; a duplicate computation on a race is
// harmless because results are idempotent.
//
// An optional capacity bounds the entry count with per-shard LRU eviction.
// Entries pinned with [LocalCache.Acquire] are never evicted until released,
// so an in-flight parent-set optimization cannot lose the entry it is
// comparing against.
//
// # Second-Level Store
//
// A [Cache] is a byte-oriented backend (Get/Set/Delete with TTL) that a
// LocalCache consults on miss and writes through on compute:
//
//   - [NullCache]: no persistence
//   - [FileCache]: one JSON file per entry under a directory, for the CLI
//   - [RedisCache]: shared across processes, for repeated runs on one problem
//
// Store keys are namespaced by a problem hash (see [Keyer]) so that entries
// from different problems never collide in a shared store.
package cache

import (
	"context"
	"time"
)

// TTLs for second-level store entries.
const (
	// TTLScore is how long a persisted score survives. Scores are pure, so
	// the TTL only bounds disk and memory growth.
	TTLScore = 30 * 24 * time.Hour
)

// Cache is a byte-oriented key-value store with per-entry TTL.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the value for key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the store.
	Close() error
}
