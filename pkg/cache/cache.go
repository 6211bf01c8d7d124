package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/angelmondragon/castmenu-backend/pkg/logger"
	"github.com/angelmondragon/castmenu-backend/pkg/redis"
)

// Store is the slice of the redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CacheKey(parts ...string) string
}

// JSONCache stores JSON encoded values in redis. Every failure is logged and
// treated as a miss so reads always fall through to the database.
type JSONCache struct {
	store Store
	ttl   time.Duration
	logg  *logger.Logger
}

// New returns nil when store is nil; a nil cache is a valid no-op.
func New(store Store, ttl time.Duration, logg *logger.Logger) *JSONCache {
	if store == nil {
		return nil
	}
	return &JSONCache{store: store, ttl: ttl, logg: logg}
}

// Key namespaces the provided parts.
func (c *JSONCache) Key(parts ...string) string {
	if c == nil {
		return ""
	}
	return c.store.CacheKey(parts...)
}

// Load decodes the cached value into dest and reports whether it was a hit.
func (c *JSONCache) Load(ctx context.Context, key string, dest any) bool {
	if c == nil || key == "" {
		return false
	}
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if !redis.IsMiss(err) {
			c.warn(ctx, key, "cache.get_failed", err)
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		c.warn(ctx, key, "cache.decode_failed", err)
		return false
	}
	return true
}

// Save encodes value and stores it with the configured TTL.
func (c *JSONCache) Save(ctx context.Context, key string, value any) {
	if c == nil || key == "" {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		c.warn(ctx, key, "cache.encode_failed", err)
		return
	}
	if err := c.store.Set(ctx, key, string(payload), c.ttl); err != nil {
		c.warn(ctx, key, "cache.set_failed", err)
	}
}

// Invalidate drops the provided keys.
func (c *JSONCache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || len(keys) == 0 {
		return
	}
	if err := c.store.Del(ctx, keys...); err != nil {
		c.warn(ctx, keys[0], "cache.invalidate_failed", err)
	}
}

func (c *JSONCache) warn(ctx context.Context, key, msg string, err error) {
	if c.logg == nil {
		return
	}
	c.logg.Warn(c.logg.WithFields(ctx, map[string]any{"cache_key": key, "error": err.Error()}), msg)
}
