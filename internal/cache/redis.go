package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/newthinker/dipcast/internal/core"
	"github.com/newthinker/dipcast/internal/pipeline"
	"github.com/redis/go-redis/v9"
)

// redisClient is the subset of redis.Cmdable the cache uses
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// Redis stores bundles as JSON strings. A per-symbol set tracks which keys
// exist so Invalidate needs no keyspace scan.
type Redis struct {
	client redisClient
	prefix string
	ttl    time.Duration
}

// NewRedis wraps a go-redis client
func NewRedis(client redisClient, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "dipcast"
	}
	return &Redis{client: client, prefix: strings.TrimSuffix(prefix, ":"), ttl: ttl}
}

func (r *Redis) bundleKey(key Key) string {
	return fmt.Sprintf("%s:bundle:%s", r.prefix, key)
}

func (r *Redis) indexKey(symbol string) string {
	return fmt.Sprintf("%s:index:%s", r.prefix, strings.ToUpper(symbol))
}

func (r *Redis) Get(ctx context.Context, key Key) (pipeline.Bundle, error) {
	data, err := r.client.Get(ctx, r.bundleKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return pipeline.Bundle{}, core.ErrCacheMiss
	}
	if err != nil {
		return pipeline.Bundle{}, fmt.Errorf("redis get %s: %w", key, err)
	}

	var b pipeline.Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		// Treat an unreadable entry as absent; the next Set overwrites it
		return pipeline.Bundle{}, core.WrapError(core.ErrCacheMiss, err)
	}
	return b, nil
}

func (r *Redis) Set(ctx context.Context, key Key, bundle pipeline.Bundle) error {
	data, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("encoding bundle: %w", err)
	}

	bk := r.bundleKey(key)
	if err := r.client.Set(ctx, bk, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	ik := r.indexKey(key.Symbol)
	if err := r.client.SAdd(ctx, ik, bk).Err(); err != nil {
		return fmt.Errorf("redis index %s: %w", key, err)
	}
	if r.ttl > 0 {
		if err := r.client.Expire(ctx, ik, r.ttl).Err(); err != nil {
			return fmt.Errorf("redis expire %s: %w", ik, err)
		}
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context, symbol string) error {
	ik := r.indexKey(symbol)
	keys, err := r.client.SMembers(ctx, ik).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis members %s: %w", ik, err)
	}
	keys = append(keys, ik)
	return r.client.Del(ctx, keys...).Err()
}
