package market

import (
	"sync"
	"time"
)

// DefaultCacheTTL bounds snapshot staleness when no TTL is configured.
const DefaultCacheTTL = 5 * time.Minute

type cacheKey struct {
	AssetID    string
	WindowDays int
	Kind       Kind
}

type cacheEntry struct {
	snapshot  *Snapshot
	expiresAt time.Time
}

// SnapshotCache memoizes snapshots by (asset, window, kind) with a fixed TTL.
// Entries are immutable once inserted; eviction is purely TTL-based. Expired
// entries are treated as absent and overwritten on the next store. Safe for
// concurrent use by multiple sessions. Concurrent misses for the same key may
// each trigger their own refetch; staleness stays bounded by the TTL either way.
type SnapshotCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	nowFn   func() time.Time
	entries map[cacheKey]cacheEntry
}

// CacheOption customises a SnapshotCache.
type CacheOption func(*SnapshotCache)

// WithClock overrides the cache's time source, used by tests to step
// through TTL expiry deterministically.
func WithClock(nowFn func() time.Time) CacheOption {
	return func(c *SnapshotCache) {
		if nowFn != nil {
			c.nowFn = nowFn
		}
	}
}

// NewSnapshotCache constructs a cache with the supplied TTL. A non-positive
// TTL falls back to DefaultCacheTTL.
func NewSnapshotCache(ttl time.Duration, opts ...CacheOption) *SnapshotCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	cache := &SnapshotCache{
		ttl:     ttl,
		nowFn:   time.Now,
		entries: make(map[cacheKey]cacheEntry),
	}
	for _, opt := range opts {
		opt(cache)
	}
	return cache
}

// Get returns the cached snapshot for the key when its TTL has not elapsed.
func (c *SnapshotCache) Get(assetID string, windowDays int, kind Kind) (*Snapshot, bool) {
	key := cacheKey{AssetID: assetID, WindowDays: windowDays, Kind: kind}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.nowFn().After(entry.expiresAt) {
		return nil, false
	}
	return entry.snapshot, true
}

// Put stores a snapshot, replacing any previous entry for the key, and
// opportunistically drops entries that have already expired.
func (c *SnapshotCache) Put(snapshot *Snapshot) {
	if snapshot == nil {
		return
	}
	key := cacheKey{AssetID: snapshot.AssetID, WindowDays: snapshot.WindowDays, Kind: snapshot.Kind}
	now := c.nowFn()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = cacheEntry{snapshot: snapshot, expiresAt: now.Add(c.ttl)}
}

// Len reports the number of stored entries, expired or not.
func (c *SnapshotCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
