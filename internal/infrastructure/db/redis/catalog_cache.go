package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sweetshop/inventory-service/internal/core/domain"
)

const (
	defaultCacheTTL = 30 * time.Second

	keyList       = "catalog:list"
	keySearch     = "catalog:search:"
	keyGeneration = "catalog:generation"
)

// errStaleGeneration aborts a fill that raced with an invalidation.
var errStaleGeneration = errors.New("catalog generation moved")

// CatalogCache caches catalog list and search results in Redis.
// Key format: catalog:list, catalog:search:<normalized filter>,
// catalog:generation (counter bumped on every invalidation).
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCatalogCache creates a CatalogCache. A non-positive ttl falls back to defaultCacheTTL.
func NewCatalogCache(client *redis.Client, ttl time.Duration) *CatalogCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CatalogCache{client: client, ttl: ttl}
}

// GetList returns the cached list or nil on a miss.
func (c *CatalogCache) GetList(ctx context.Context) ([]domain.Item, error) {
	return c.get(ctx, keyList)
}

// Generation returns the current invalidation counter; 0 before the first one.
func (c *CatalogCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, keyGeneration).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cache generation: %w", err)
	}
	return gen, nil
}

// SetList stores the full catalog unless generation is stale.
func (c *CatalogCache) SetList(ctx context.Context, generation int64, items []domain.Item) error {
	return c.set(ctx, generation, keyList, items)
}

// GetSearch returns the cached result for the search key or nil on a miss.
func (c *CatalogCache) GetSearch(ctx context.Context, key string) ([]domain.Item, error) {
	return c.get(ctx, searchKey(key))
}

// SetSearch stores a search result unless generation is stale.
func (c *CatalogCache) SetSearch(ctx context.Context, generation int64, key string, items []domain.Item) error {
	return c.set(ctx, generation, searchKey(key), items)
}

// InvalidateAll bumps the generation, then removes the list and every
// search key. Fills that started before the bump are discarded.
func (c *CatalogCache) InvalidateAll(ctx context.Context) error {
	if err := c.client.Incr(ctx, keyGeneration).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	if err := c.client.Del(ctx, keyList).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	iter := c.client.Scan(ctx, 0, keySearch+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("cache invalidate: %w", err)
		}
	}
	return iter.Err()
}

func (c *CatalogCache) get(ctx context.Context, key string) ([]domain.Item, error) {
	b, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	items := []domain.Item{}
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("cache decode: %w", err)
	}
	return items, nil
}

// set writes key inside a WATCH on the generation counter, so an
// invalidation landing between the check and the write aborts the EXEC.
func (c *CatalogCache) set(ctx context.Context, generation int64, key string, items []domain.Item) error {
	b, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, keyGeneration).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, c.ttl)
			return nil
		})
		return err
	}, keyGeneration)

	if errors.Is(err, errStaleGeneration) || errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func searchKey(q string) string {
	return keySearch + strings.TrimSpace(strings.ToLower(q))
}
