package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// Memcached implements Store backed by memcached. Values are JSON-encoded and
// keys are namespaced with a per-store prefix so the weather and suggestion
// caches can share one cluster. Clear flushes the whole cluster, since
// memcached has no per-prefix flush.
type Memcached[T any] struct {
	client *memcache.Client
	prefix string
}

// NewMemcached creates a Memcached store. addrs is a comma-separated server
// list; prefix namespaces this store's keys (e.g. "weather", "agro").
func NewMemcached[T any](addrs, prefix string, timeout time.Duration, maxIdleConns int) *Memcached[T] {
	servers := parseAddrs(addrs)
	if len(servers) == 0 {
		servers = []string{"localhost:11211"}
	}
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	if maxIdleConns > 0 {
		client.MaxIdleConns = maxIdleConns
	}
	return &Memcached[T]{client: client, prefix: prefix + ":"}
}

// maxRelativeExpiration is the largest TTL memcached treats as a relative
// offset. Anything above 30 days is interpreted as an absolute unix
// timestamp, which for small values lies in the past and expires the entry
// immediately.
const maxRelativeExpiration = 30 * 24 * time.Hour

func expirationSeconds(ttl time.Duration) int32 {
	if ttl > maxRelativeExpiration {
		ttl = maxRelativeExpiration
	}
	return int32(ttl / time.Second)
}

func parseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

func (c *Memcached[T]) key(k string) string {
	return c.prefix + k
}

// Get returns false, nil on a cache miss and false, err on a backend error.
func (c *Memcached[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T
	if ctx.Err() != nil {
		return zero, false, ctx.Err()
	}
	item, err := c.client.Get(c.key(key))
	if err != nil {
		if err == memcache.ErrCacheMiss {
			return zero, false, nil
		}
		return zero, false, err
	}
	var value T
	if err := json.Unmarshal(item.Value, &value); err != nil {
		return zero, false, err
	}
	return value, true, nil
}

// Set stores value under key with the given TTL.
func (c *Memcached[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(&memcache.Item{
		Key:        c.key(key),
		Value:      raw,
		Expiration: expirationSeconds(ttl),
	})
}

// Delete removes the entry for key. A miss is not an error.
func (c *Memcached[T]) Delete(ctx context.Context, key string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := c.client.Delete(c.key(key)); err != nil && err != memcache.ErrCacheMiss {
		return err
	}
	return nil
}

// Clear flushes all entries on the cluster.
func (c *Memcached[T]) Clear(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return c.client.FlushAll()
}

// Ping checks backend reachability for health checks.
func (c *Memcached[T]) Ping() error {
	return c.client.Ping()
}
