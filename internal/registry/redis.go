package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "briefbot:brief:"

// RedisStore is an alternative cache backend for deployments that share
// briefs across hosts. TTL is enforced natively; age is tracked in a
// sibling timestamp key.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects to addr and verifies the connection.
func NewRedisStore(ctx context.Context, addr string) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func (rs *RedisStore) Load(ctx context.Context, key string, ttl time.Duration) (json.RawMessage, error) {
	obj, _, err := rs.LoadWithAge(ctx, key, ttl)
	return obj, err
}

func (rs *RedisStore) LoadWithAge(ctx context.Context, key string, _ time.Duration) (json.RawMessage, time.Duration, error) {
	raw, err := rs.rdb.Get(ctx, redisPrefix+key).Bytes()
	if err != nil {
		return nil, 0, ErrCacheMiss
	}
	var age time.Duration
	if ts, err := rs.rdb.Get(ctx, redisPrefix+key+":at").Int64(); err == nil {
		age = time.Since(time.Unix(ts, 0))
	}
	if !json.Valid(raw) {
		return nil, 0, ErrCacheMiss
	}
	return raw, age, nil
}

func (rs *RedisStore) Save(ctx context.Context, key string, obj any) error {
	raw, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	pipe := rs.rdb.TxPipeline()
	pipe.Set(ctx, redisPrefix+key, raw, ResponseTTL)
	pipe.Set(ctx, redisPrefix+key+":at", time.Now().Unix(), ResponseTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save: %w", err)
	}
	return nil
}

func (rs *RedisStore) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	iter := rs.rdb.Scan(ctx, 0, redisPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if len(key) > 3 && key[len(key)-3:] == ":at" {
			continue
		}
		stats.Entries++
		if n, err := rs.rdb.StrLen(ctx, key).Result(); err == nil {
			stats.SizeBytes += n
		}
	}
	if err := iter.Err(); err != nil {
		return Stats{}, fmt.Errorf("redis scan: %w", err)
	}
	return stats, nil
}

func (rs *RedisStore) ClearAll(ctx context.Context) error {
	iter := rs.rdb.Scan(ctx, 0, redisPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		rs.rdb.Del(ctx, iter.Val())
	}
	return iter.Err()
}
