package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a fixed-window counter: one INCR key per window, expiring with the window.
type Limiter struct {
	rdb    redis.Cmdable
	scope  string
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewLimiter(rdb redis.Cmdable, scope string, limit int, window time.Duration) *Limiter {
	return &Limiter{rdb: rdb, scope: scope, limit: limit, window: window, now: time.Now}
}

// Allow counts one hit for ident. When the limit is exceeded it returns false and
// the time left until the window resets.
func (l *Limiter) Allow(ctx context.Context, ident string) (bool, time.Duration, error) {
	now := l.now()
	start := now.Truncate(l.window)
	key := fmt.Sprintf(KeyThrottle, l.scope, ident, start.Unix())

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}
	if incr.Val() > int64(l.limit) {
		return false, start.Add(l.window).Sub(now), nil
	}
	return true, 0, nil
}
