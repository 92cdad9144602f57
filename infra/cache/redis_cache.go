package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/amirasaad/finplan/pkg/cache"
	"github.com/amirasaad/finplan/pkg/domain/budget"
	"github.com/redis/go-redis/v9"
)

// RedisAggregateCache implements AggregateCache using Redis.
type RedisAggregateCache struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger
}

var _ cache.AggregateCache = (*RedisAggregateCache)(nil)

// NewRedisAggregateCache creates a cache over an existing client.
func NewRedisAggregateCache(
	client redis.UniversalClient,
	prefix string,
	logger *slog.Logger,
) *RedisAggregateCache {
	return &RedisAggregateCache{client: client, prefix: prefix, logger: logger}
}

func (r *RedisAggregateCache) key(key string) string {
	return r.prefix + key
}

func (r *RedisAggregateCache) Get(ctx context.Context, key string) (*budget.MonthlyAggregate, error) {
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		r.logger.Debug("Redis cache miss", "key", key)
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Redis cache get error", "key", key, "error", err)
		return nil, err
	}
	var agg budget.MonthlyAggregate
	if err := json.Unmarshal(val, &agg); err != nil {
		r.logger.Error("Redis cache unmarshal error", "key", key, "error", err)
		return nil, err
	}
	r.logger.Debug("Redis cache hit", "key", key)
	return &agg, nil
}

func (r *RedisAggregateCache) Set(
	ctx context.Context,
	key string,
	agg *budget.MonthlyAggregate,
	ttl time.Duration,
) error {
	data, err := json.Marshal(agg)
	if err != nil {
		r.logger.Error("Redis cache marshal error", "key", key, "error", err)
		return err
	}
	if err := r.client.Set(ctx, r.key(key), data, ttl).Err(); err != nil {
		r.logger.Error("Redis cache set error", "key", key, "error", err)
		return err
	}
	r.logger.Debug("Redis cache set", "key", key, "ttl", ttl)
	return nil
}

func (r *RedisAggregateCache) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		r.logger.Error("Redis cache delete error", "key", key, "error", err)
		return err
	}
	return nil
}
