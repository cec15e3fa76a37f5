package cache

import (
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/ristretto/v2"
)

// RewriteCache memoizes manifest rewrite results. The origin fetch itself is
// always performed with cache-bypassing semantics; only the pure rewrite
// computation over the fetched bytes is cached, keyed by the manifest
// content, its base URL and the registry generation. Live playlists change
// between fetches and simply miss, while unchanged VOD master playlists skip
// the matcher on every refresh.
type RewriteCache struct {
	cache    *ristretto.Cache[uint64, string]
	duration time.Duration
	enabled  bool
}

// NewRewriteCache builds the memoization cache. When disabled, Get always
// misses and Set is a no-op.
func NewRewriteCache(enabled bool, duration time.Duration) *RewriteCache {
	cache, err := ristretto.NewCache(&ristretto.Config[uint64, string]{
		NumCounters: 1000,
		MaxCost:     16 << 20,
		BufferItems: 64,
	})
	if err != nil {
		panic(err)
	}

	return &RewriteCache{
		cache:    cache,
		duration: duration,
		enabled:  enabled,
	}
}

// Key derives the cache key for one rewrite invocation.
func (rc *RewriteCache) Key(content, baseURL, sessionID string, generation uint64) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(content)
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(baseURL)
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(sessionID)
	key := d.Sum64()
	return key ^ generation
}

// Get returns a memoized rewrite result.
func (rc *RewriteCache) Get(key uint64) (string, bool) {
	if !rc.enabled {
		return "", false
	}
	return rc.cache.Get(key)
}

// Set stores a rewrite result with the configured TTL.
func (rc *RewriteCache) Set(key uint64, value string) {
	if !rc.enabled {
		return
	}
	rc.cache.SetWithTTL(key, value, int64(len(value)), rc.duration)
}

// Close releases the underlying cache resources.
func (rc *RewriteCache) Close() {
	rc.cache.Close()
}
