package redisx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ListCache caches serialized listing pages under a generation counter.
// Invalidate bumps the generation so every previously cached page becomes unreachable
// and expires on its own TTL.
type ListCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewListCache(rdb redis.Cmdable, ttl time.Duration) *ListCache {
	if ttl <= 0 {
		ttl = TTLProductList
	}
	return &ListCache{rdb: rdb, ttl: ttl}
}

func (c *ListCache) key(ctx context.Context, query string) (string, error) {
	gen, err := c.rdb.Get(ctx, KeyProductListGen).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return fmt.Sprintf(KeyProductList, gen, query), nil
}

// Get resolves the current generation once and returns the slot key with the cached page.
// On a miss it returns (slot, nil, false, nil); pass slot back to Set so a page loaded
// before an invalidation is never stored under the newer generation.
func (c *ListCache) Get(ctx context.Context, query string) (string, []byte, bool, error) {
	slot, err := c.key(ctx, query)
	if err != nil {
		return "", nil, false, err
	}
	b, err := c.rdb.Get(ctx, slot).Bytes()
	if errors.Is(err, redis.Nil) {
		return slot, nil, false, nil
	}
	if err != nil {
		return slot, nil, false, err
	}
	return slot, b, true, nil
}

func (c *ListCache) Set(ctx context.Context, slot string, value []byte) error {
	if slot == "" {
		return errors.New("redisx: empty cache slot")
	}
	return c.rdb.Set(ctx, slot, value, c.ttl).Err()
}

func (c *ListCache) Invalidate(ctx context.Context) error {
	return c.rdb.Incr(ctx, KeyProductListGen).Err()
}
