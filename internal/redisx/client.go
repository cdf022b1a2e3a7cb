package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Claim sets key only if absent. true berarti caller yang pertama (boleh proses).
func Claim(ctx context.Context, rdb redis.Cmdable, key string, ttl time.Duration) (bool, error) {
	return rdb.SetNX(ctx, key, "1", ttl).Result()
}

// Deduper marks task ids as processed for a service so redelivered messages are skipped.
type Deduper struct {
	rdb     redis.Cmdable
	service string
	ttl     time.Duration
}

func NewDeduper(rdb redis.Cmdable, service string) *Deduper {
	return &Deduper{rdb: rdb, service: service, ttl: TTLDedup}
}

func (d *Deduper) Claim(ctx context.Context, id string) (bool, error) {
	return Claim(ctx, d.rdb, fmt.Sprintf(KeyDedup, d.service, id), d.ttl)
}

// Release lets a failed task be processed again on redelivery.
func (d *Deduper) Release(ctx context.Context, id string) error {
	return d.rdb.Del(ctx, fmt.Sprintf(KeyDedup, d.service, id)).Err()
}
