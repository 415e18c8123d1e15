package cache

import (
	"context"
	"sync"
	"time"
)

// Store is the interface cache backends implement. Get returns the cached
// value if present and not expired, Set stores a value with a TTL, Delete
// removes one key and Clear removes everything.
//
// The in-memory backend never returns errors; the error in the signature
// exists for the memcached backend. Callers treat a Get error as a miss and
// log Set errors, so cache failures are never visible to their own callers.
type Store[T any] interface {
	Get(ctx context.Context, key string) (T, bool, error)
	Set(ctx context.Context, key string, value T, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// entry stores a cached value with its expiration timestamp.
type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// InMemory implements Store using a map with TTL-based expiration. Expired
// entries are removed lazily on access; there is no background sweep and no
// size bound. Safe for concurrent use.
type InMemory[T any] struct {
	mu   sync.Mutex
	data map[string]entry[T]
}

// NewInMemory creates an empty in-memory store.
func NewInMemory[T any]() *InMemory[T] {
	return &InMemory[T]{data: make(map[string]entry[T])}
}

// Get returns (value, true, nil) on a hit, (zero, false, nil) on a miss or
// when the entry has expired. Expired entries are evicted here.
func (c *InMemory[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[key]
	if !ok {
		return zero, false, nil
	}
	if !time.Now().Before(e.expiresAt) {
		delete(c.data, key)
		return zero, false, nil
	}
	return e.value, true, nil
}

// Set stores value under key, overwriting any existing entry with a fresh expiry.
func (c *InMemory[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = entry[T]{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Delete removes the entry for key if present.
func (c *InMemory[T]) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// Clear removes all entries.
func (c *InMemory[T]) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]entry[T])
	return nil
}

// Stats reports the current entry count and keys, including entries that have
// expired but not yet been evicted. Used by the cache-info endpoints.
func (c *InMemory[T]) Stats() (int, []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.data))
	for k := range c.data {
		keys = append(keys, k)
	}
	return len(keys), keys
}
