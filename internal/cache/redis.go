// Package cache provides the two-tier result cache and the shared Redis
// client used for both the durable cache tier and the calculation status
// store.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Config holds Redis connection configuration.
type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// RedisCache wraps the Redis client with the JSON key-value operations the
// engine needs. All cross-instance shared mutable state goes through here,
// and every mutation is a single-key write.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a Redis client and verifies connectivity.
func NewRedisCache(cfg Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Str("port", cfg.Port).
		Int("db", cfg.DB).
		Msg("Successfully connected to Redis")

	return &RedisCache{client: client}, nil
}

// Close closes the Redis connection.
func (r *RedisCache) Close() {
	if r.client != nil {
		_ = r.client.Close()
		log.Info().Msg("Redis connection closed")
	}
}

// Health checks Redis connectivity.
func (r *RedisCache) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// GetJSON reads the value at key into out. Returns false on a miss.
func (r *RedisCache) GetJSON(ctx context.Context, key string, out any) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get key %s: %w", key, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to decode key %s: %w", key, err)
	}
	return true, nil
}

// SetJSON writes value at key with a TTL.
func (r *RedisCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode key %s: %w", key, err)
	}

	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// SetJSONIfAbsent writes value at key only if the key does not already
// exist. This is the conditional insert backing calculation admission: it is
// a single atomic write, never a check followed by an insert.
func (r *RedisCache) SetJSONIfAbsent(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("failed to encode key %s: %w", key, err)
	}

	ok, err := r.client.SetNX(ctx, key, data, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to setnx key %s: %w", key, err)
	}
	return ok, nil
}

// swapScript replaces the value at a key only while the stored JSON object
// still carries the expected calculation_id. Used to take over a stale run
// record without racing a concurrent takeover.
var swapScript = redis.NewScript(`
local cur = redis.call("GET", KEYS[1])
if not cur then
	redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
	return 1
end
local ok, obj = pcall(cjson.decode, cur)
if ok and obj["calculation_id"] == ARGV[1] then
	redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
	return 1
end
return 0
`)

// SwapJSONByCalculationID atomically replaces the value at key with value,
// but only if the current value's calculation_id equals expectID (or the key
// has expired in the meantime). Returns false when another writer got there
// first.
func (r *RedisCache) SwapJSONByCalculationID(ctx context.Context, key, expectID string, value any, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("failed to encode key %s: %w", key, err)
	}

	res, err := swapScript.Run(ctx, r.client, []string{key}, expectID, data, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to swap key %s: %w", key, err)
	}
	return res == 1, nil
}

// Delete removes keys. Missing keys are not an error.
func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}

// DeleteByPrefix removes every key matching prefix*. Uses SCAN so the
// traversal never blocks the server.
func (r *RedisCache) DeleteByPrefix(ctx context.Context, prefix string) error {
	iter := r.client.Scan(ctx, 0, prefix+"*", 100).Iterator()

	deleted := 0
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete key %s: %w", iter.Val(), err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan prefix %s: %w", prefix, err)
	}

	log.Debug().Str("prefix", prefix).Int("deleted", deleted).Msg("Deleted keys by prefix")
	return nil
}
