package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Store is the cache contract the feed layer depends on. It is an
// optimization, never a correctness dependency: callers must work with a
// nil Store or an empty result.
type Store interface {
	Get(key string) interface{}
	Set(key string, data interface{}, ttl time.Duration)
	Delete(key string)
	Clear()
}

// Item wraps cached data with its expiry deadline.
type Item struct {
	Data      interface{}
	ExpiresAt time.Time
}

// Memory is an in-process LRU store with per-entry TTL.
type Memory struct {
	lruCache *lru.Cache[string, Item]
}

// NewMemory creates a store holding at most size entries.
func NewMemory(size int) (*Memory, error) {
	l, err := lru.New[string, Item](size)
	if err != nil {
		return nil, err
	}
	return &Memory{lruCache: l}, nil
}

// Set stores data under key for the given TTL.
func (c *Memory) Set(key string, data interface{}, ttl time.Duration) {
	c.lruCache.Add(key, Item{
		Data:      data,
		ExpiresAt: time.Now().Add(ttl),
	})
}

// Get returns the cached data, or nil when absent or expired.
func (c *Memory) Get(key string) interface{} {
	val, ok := c.lruCache.Get(key)
	if !ok {
		return nil
	}

	if time.Now().After(val.ExpiresAt) {
		c.lruCache.Remove(key)
		return nil
	}

	return val.Data
}

// Delete removes a single key.
func (c *Memory) Delete(key string) {
	c.lruCache.Remove(key)
}

// Clear drops every entry. The next read of any key is a miss.
func (c *Memory) Clear() {
	c.lruCache.Purge()
}
