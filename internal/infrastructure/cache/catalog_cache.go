// Package cache provides the Redis read-through cache for catalog lookups and
// its PostgreSQL LISTEN/NOTIFY invalidation.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tillpoint/internal/core/id"
	"tillpoint/internal/domain/catalog"
	"tillpoint/pkg/logger"
)

// Kinds of cached catalog entries. They double as NOTIFY payload prefixes.
const (
	KindSystemVariant  = "system_variant"
	KindCompanyProduct = "company_product"
	KindService        = "service"
	KindCustomer       = "customer"
)

const keyPrefix = "tillpoint:catalog:"

// Key returns the Redis key for one catalog entry.
func Key(kind string, entryID id.ID) string {
	return keyPrefix + kind + ":" + entryID
}

// Client is the subset of redis.Cmdable the cache needs.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

var _ catalog.Reader = (*CatalogCache)(nil)

// CatalogCache is a read-through cache in front of a catalog.Reader.
// Redis failures fall back to the inner reader; misses are not cached.
type CatalogCache struct {
	inner  catalog.Reader
	client Client
	ttl    time.Duration
}

// NewCatalogCache wraps inner. A non-positive ttl means five minutes.
func NewCatalogCache(inner catalog.Reader, client Client, ttl time.Duration) *CatalogCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CatalogCache{inner: inner, client: client, ttl: ttl}
}

// readThrough returns the cached value for key, or calls load and caches it.
func readThrough[T any](ctx context.Context, c *CatalogCache, key string, load func() (T, error)) (T, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var cached T
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			return cached, nil
		}
		logger.Warn(ctx, "corrupt catalog cache entry", "key", key)
	} else if !errors.Is(err, redis.Nil) {
		logger.Warn(ctx, "catalog cache read failed", "key", key, "error", err)
	}

	value, err := load()
	if err != nil {
		return value, err
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return value, nil
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		logger.Warn(ctx, "catalog cache write failed", "key", key, "error", err)
	}
	return value, nil
}

func (c *CatalogCache) SystemVariant(ctx context.Context, systemVariantID id.ID) (catalog.SystemVariant, error) {
	return readThrough(ctx, c, Key(KindSystemVariant, systemVariantID), func() (catalog.SystemVariant, error) {
		return c.inner.SystemVariant(ctx, systemVariantID)
	})
}

func (c *CatalogCache) CompanyProduct(ctx context.Context, companyProductID id.ID) (catalog.CompanyProduct, error) {
	return readThrough(ctx, c, Key(KindCompanyProduct, companyProductID), func() (catalog.CompanyProduct, error) {
		return c.inner.CompanyProduct(ctx, companyProductID)
	})
}

func (c *CatalogCache) ServiceName(ctx context.Context, serviceID id.ID) (string, error) {
	return readThrough(ctx, c, Key(KindService, serviceID), func() (string, error) {
		return c.inner.ServiceName(ctx, serviceID)
	})
}

func (c *CatalogCache) CustomerName(ctx context.Context, userID id.ID) (string, error) {
	return readThrough(ctx, c, Key(KindCustomer, userID), func() (string, error) {
		return c.inner.CustomerName(ctx, userID)
	})
}

// Evict drops one cached entry.
func (c *CatalogCache) Evict(ctx context.Context, kind string, entryID id.ID) error {
	if err := c.client.Del(ctx, Key(kind, entryID)).Err(); err != nil {
		return fmt.Errorf("evict %s %s: %w", kind, entryID, err)
	}
	return nil
}
