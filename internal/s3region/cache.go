// Package s3region implements the per-bucket region cache and bootstrap
// lookup. Entries never expire within a client instance; concurrent
// lookups for the same bucket are coalesced with
// golang.org/x/sync/singleflight rather than left to race freely.
package s3region

import "sync"

// Cache is a bucket-name -> region-code map guarded by a mutex.
type Cache struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{data: make(map[string]string)}
}

// Get reports the cached region for bucket, if any.
func (c *Cache) Get(bucket string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	region, ok := c.data[bucket]
	return region, ok
}

// Set records bucket's region. The cache is monotonic: once set, a
// bucket's region is never overwritten with a different value within the
// same Cache.
func (c *Cache) Set(bucket, region string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[bucket]; !ok {
		c.data[bucket] = region
	}
}

// Len reports the number of cached buckets, for tests.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
