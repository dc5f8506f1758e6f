// Package cache is the read-through cache in front of the relational store.
// Failures never reach callers: a broken backend reads as a miss and a failed
// write or invalidation is logged and dropped, leaving the TTL as the safety
// net.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/CUknot/chat_backend/models"
	"golang.org/x/sync/singleflight"
)

// ErrMiss is returned by a Backend when the key is absent.
var ErrMiss = errors.New("cache miss")

// Backend is the raw key/value store behind a Cache.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type Config struct {
	Prefix  string
	TTL     time.Duration
	Timeout time.Duration
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		Prefix:  "chat:",
		TTL:     5 * time.Minute,
		Timeout: 500 * time.Millisecond,
	}
}

// Cache stores JSON-encoded views under prefixed keys.
type Cache struct {
	backend Backend
	cfg     Config
	group   singleflight.Group

	// gens counts invalidations per key. A load that started before an
	// invalidation must not write its result back.
	mu   sync.Mutex
	gens map[string]uint64
}

func New(backend Backend, cfg Config) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Cache{backend: backend, cfg: cfg, gens: map[string]uint64{}}
}

func (c *Cache) generation(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[key]
}

// putIfCurrent stores value unless key was invalidated since gen was read.
// An invalidation can also land between the check and the write, so the
// generation is read again afterwards and the entry dropped if it moved.
func (c *Cache) putIfCurrent(ctx context.Context, key string, gen uint64, value any) {
	if c.generation(key) != gen {
		observe("put", resultSkipped)
		return
	}
	c.Put(ctx, key, value, 0)
	if c.generation(key) == gen {
		return
	}
	observe("put", resultSkipped)
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	if err := c.backend.Del(ctx, c.cfg.Prefix+key); err != nil {
		c.fail("invalidate", key, err)
	}
}

// Get decodes the value stored under key into dest and reports whether it
// was found. Backend or decoding errors count as a miss.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	data, err := c.backend.Get(ctx, c.cfg.Prefix+key)
	if err != nil {
		if errors.Is(err, ErrMiss) {
			observe("get", resultMiss)
			return false
		}
		c.fail("get", key, err)
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.fail("decode", key, err)
		return false
	}
	observe("get", resultHit)
	return true
}

// Put stores value under key for ttl, or for the configured TTL when ttl
// is zero.
func (c *Cache) Put(ctx context.Context, key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.cfg.TTL
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.fail("encode", key, err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	if err := c.backend.Set(ctx, c.cfg.Prefix+key, data, ttl); err != nil {
		c.fail("put", key, err)
		return
	}
	observe("put", resultOK)
}

// Invalidate drops keys. Call it only after the write that made them stale
// has committed.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	full := make([]string, len(keys))
	c.mu.Lock()
	for _, k := range keys {
		c.gens[k]++
	}
	c.mu.Unlock()
	for i, k := range keys {
		full[i] = c.cfg.Prefix + k
		// Readers arriving after this point must not join a load that may
		// have read pre-commit state.
		c.group.Forget(k)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	if err := c.backend.Del(ctx, full...); err != nil {
		c.fail("invalidate", keys[0], err)
		return
	}
	observe("invalidate", resultOK)
}

func (c *Cache) fail(op, key string, err error) {
	observe(op, resultError)
	err = models.NewError("cache."+op, models.ErrCache, err)
	slog.Warn("cache operation failed, falling through", "key", key, "error", err)
}

// ReadThrough returns the cached value for key, or calls load, caches its
// result and returns it. Concurrent misses on the same key share one load,
// which runs detached from the first caller's cancellation; load is expected
// to bound itself. Errors from load are returned as-is and nothing is cached.
func ReadThrough[T any](ctx context.Context, c *Cache, key string, load func(context.Context) (T, error)) (T, error) {
	var cached T
	if c.Get(ctx, key, &cached) {
		return cached, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		shared := context.WithoutCancel(ctx)
		gen := c.generation(key)
		fresh, err := load(shared)
		if err != nil {
			return nil, err
		}
		c.putIfCurrent(shared, key, gen, fresh)
		return fresh, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache: unexpected value type %T for key %q", v, key)
	}
	return out, nil
}
