package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// NoExpiration keeps an entry until it is deleted
const NoExpiration = gocache.NoExpiration

// Cache defines the interface for cache operations
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Exists(ctx context.Context, key string) (bool, error)
}

// GetOrSet returns the cached value for key, storing value first if the key is
// absent. When several callers race, the first writer wins and every caller
// gets the winner's value; loaded reports whether an existing value was used.
func GetOrSet(ctx context.Context, c Cache, key string, value interface{}, ttl time.Duration) (actual interface{}, loaded bool, err error) {
	for {
		if v, ok := c.Get(ctx, key); ok {
			return v, true, nil
		}
		stored, err := c.SetNX(ctx, key, value, ttl)
		if err != nil {
			return nil, false, err
		}
		if stored {
			return value, false, nil
		}
		// lost the race; the winner's entry may already have expired, so look again
	}
}

// LocalCache wraps patrickmn/go-cache for in-memory caching
type LocalCache struct {
	cache *gocache.Cache
}

// NewLocalCache creates a new local cache. A defaultTTL of NoExpiration keeps
// entries forever.
func NewLocalCache(defaultTTL, cleanupInterval time.Duration) *LocalCache {
	return &LocalCache{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves a value from the local cache
func (l *LocalCache) Get(ctx context.Context, key string) (interface{}, bool) {
	return l.cache.Get(key)
}

// Set stores a value in the local cache
func (l *LocalCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	l.cache.Set(key, value, ttl)
	return nil
}

// SetNX stores value only if key is absent. It is atomic: go-cache's Add
// holds the cache lock across the check and the write.
func (l *LocalCache) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	if err := l.cache.Add(key, value, ttl); err != nil {
		return false, nil
	}
	return true, nil
}

// Delete removes a value from the local cache
func (l *LocalCache) Delete(ctx context.Context, key string) error {
	l.cache.Delete(key)
	return nil
}

// Clear removes all items from the local cache
func (l *LocalCache) Clear(ctx context.Context) error {
	l.cache.Flush()
	return nil
}

// Exists checks if a key exists
func (l *LocalCache) Exists(ctx context.Context, key string) (bool, error) {
	_, found := l.cache.Get(key)
	return found, nil
}

// Len returns the number of cached items, including expired ones not yet cleaned up
func (l *LocalCache) Len() int {
	return l.cache.ItemCount()
}
