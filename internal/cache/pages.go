package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/recordly/record-store/internal/redisx"
)

// Pages is the read-through cache for list results. Keys are deterministic
// serializations of (filter, pagination); entries expire after TTL. Backend
// failures never propagate: a failed Get is a miss, a failed Set is dropped.
type Pages struct {
	RDB *redis.Client
	TTL time.Duration
	Log *zap.Logger
}

func New(rdb *redis.Client, ttl time.Duration, log *zap.Logger) *Pages {
	return &Pages{RDB: rdb, TTL: ttl, Log: log}
}

func (c *Pages) Get(ctx context.Context, key string, out any) bool {
	b, err := c.RDB.Get(ctx, redisx.KeyPagePrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.Log.Debug("page cache get failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(b, out); err != nil {
		c.Log.Debug("page cache entry unreadable", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *Pages) Set(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.RDB.Set(ctx, redisx.KeyPagePrefix+key, b, c.TTL).Err(); err != nil {
		c.Log.Debug("page cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// InvalidateAll clears the whole page namespace. Wholesale: any mutation can
// change arbitrarily many filter/page combinations, so precision is not worth
// the bookkeeping. The next read recomputes from the store.
func (c *Pages) InvalidateAll(ctx context.Context) {
	iter := c.RDB.Scan(ctx, 0, redisx.KeyPagePrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.RDB.Del(ctx, iter.Val()).Err(); err != nil {
			c.Log.Warn("page cache invalidation failed", zap.String("key", iter.Val()), zap.Error(err))
			return
		}
	}
	if err := iter.Err(); err != nil {
		c.Log.Warn("page cache scan failed", zap.Error(err))
	}
}
