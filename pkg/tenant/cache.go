package tenant

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache holds resolved tenants between requests so the auth middleware
// does not hit the store (and bcrypt) on every call.
type Cache interface {
	Get(ctx context.Context, key string) (*Tenant, bool)
	Set(ctx context.Context, key string, tenant *Tenant, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

type memCacheItem struct {
	tenant    *Tenant
	expiresAt time.Time
}

// memCache is the default in-memory cache. Expired entries are dropped
// lazily on read; the tenant set is small enough that no sweeper is needed.
type memCache struct {
	mu    sync.RWMutex
	items map[string]memCacheItem
}

// NewMemCache creates an in-memory tenant cache.
func NewMemCache() Cache {
	return &memCache{items: make(map[string]memCacheItem)}
}

func (c *memCache) Get(ctx context.Context, key string) (*Tenant, bool) {
	c.mu.RLock()
	item, exists := c.items[key]
	c.mu.RUnlock()
	if !exists {
		return nil, false
	}
	if time.Now().After(item.expiresAt) {
		c.Delete(ctx, key)
		return nil, false
	}
	return item.tenant, true
}

func (c *memCache) Set(ctx context.Context, key string, tenant *Tenant, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = memCacheItem{tenant: tenant, expiresAt: time.Now().Add(ttl)}
}

func (c *memCache) Delete(ctx context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// redisCache shares resolved tenants across instances. Cache errors are
// treated as misses; the store remains the source of truth.
type redisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache creates a tenant cache backed by the given Redis client.
func NewRedisCache(client *redis.Client) Cache {
	return &redisCache{client: client, prefix: "tenant:"}
}

func (c *redisCache) Get(ctx context.Context, key string) (*Tenant, bool) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	var t Tenant
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, false
	}
	return &t, true
}

func (c *redisCache) Set(ctx context.Context, key string, tenant *Tenant, ttl time.Duration) {
	raw, err := json.Marshal(tenant)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, c.prefix+key, raw, ttl).Err()
}

func (c *redisCache) Delete(ctx context.Context, key string) {
	_ = c.client.Del(ctx, c.prefix+key).Err()
}
