package settings

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskbridge/internal/platform"
)

// Cache wraps a Store with Redis-backed caching for reads.
// Writes go to the base store first and then evict the user's keys.
// Redis failures never fail a read; the base store answers instead.
type Cache struct {
	base   Store
	redis  *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// NewCache creates a caching Store using the provided Redis client and TTL.
func NewCache(base Store, client *redis.Client, ttl time.Duration, logger *log.Logger) *Cache {
	if base == nil {
		panic("settings.NewCache: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Cache{base: base, redis: client, ttl: ttl, logger: logger}
}

// cachedActive is stored for users without a selection too, so repeated
// lookups for unconfigured users stay off the base store.
type cachedActive struct {
	ID string `json:"id"`
	OK bool   `json:"ok"`
}

// ActivePlatform implements platform.Resolver.
func (c *Cache) ActivePlatform(ctx context.Context, userID string) (platform.ID, bool, error) {
	var hit cachedActive
	if c.load(ctx, activeCacheKey(userID), &hit) {
		return platform.ID(hit.ID), hit.OK, nil
	}

	id, ok, err := c.base.ActivePlatform(ctx, userID)
	if err != nil {
		return "", false, err
	}
	c.store(ctx, activeCacheKey(userID), cachedActive{ID: string(id), OK: ok})
	return id, ok, nil
}

// Settings implements platform.Resolver. Missing settings are not cached.
func (c *Cache) Settings(ctx context.Context, userID string, id platform.ID) (platform.Settings, bool, error) {
	id = platform.NormalizeID(string(id))
	var hit platform.Settings
	if c.load(ctx, settingsCacheKey(userID, id), &hit) {
		return hit, true, nil
	}

	s, ok, err := c.base.Settings(ctx, userID, id)
	if err != nil || !ok {
		return s, ok, err
	}
	c.store(ctx, settingsCacheKey(userID, id), s)
	return s, true, nil
}

// Save implements Store.
func (c *Cache) Save(ctx context.Context, userID string, id platform.ID, s platform.Settings) error {
	if err := c.base.Save(ctx, userID, id, s); err != nil {
		return err
	}
	c.evict(ctx, userID, id)
	return nil
}

// SetActive implements Store.
func (c *Cache) SetActive(ctx context.Context, userID string, id platform.ID) error {
	if err := c.base.SetActive(ctx, userID, id); err != nil {
		return err
	}
	c.evict(ctx, userID, "")
	return nil
}

// Delete implements Store.
func (c *Cache) Delete(ctx context.Context, userID string, id platform.ID) error {
	if err := c.base.Delete(ctx, userID, id); err != nil {
		return err
	}
	c.evict(ctx, userID, id)
	return nil
}

// Platforms implements Store. It is not cached.
func (c *Cache) Platforms(ctx context.Context, userID string) ([]platform.ID, error) {
	return c.base.Platforms(ctx, userID)
}

// Close closes the base store and the Redis client.
func (c *Cache) Close() error {
	err := c.base.Close()
	if c.redis != nil {
		if cerr := c.redis.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (c *Cache) load(ctx context.Context, key string, v any) bool {
	if c.redis == nil {
		return false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).WithField("key", key).Warn("settings.cache.get_failed")
			_ = c.redis.Del(ctx, key).Err()
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return false
	}
	return true
}

func (c *Cache) store(ctx context.Context, key string, v any) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("settings.cache.set_failed")
	}
}

// evict drops the user's active selection and, if id is set, its settings.
func (c *Cache) evict(ctx context.Context, userID string, id platform.ID) {
	if c.redis == nil {
		return
	}
	keys := []string{activeCacheKey(userID)}
	if id != "" {
		keys = append(keys, settingsCacheKey(userID, platform.NormalizeID(string(id))))
	}
	_, _ = c.redis.Del(ctx, keys...).Result()
}

func activeCacheKey(userID string) string {
	return "platform:active:" + userID
}

func settingsCacheKey(userID string, id platform.ID) string {
	return "platform:settings:" + userID + ":" + string(id)
}
