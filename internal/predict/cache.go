package predict

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const cachePrefix = "savings:predict:"

// RedisCache keeps shaped results in redis with a fixed TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(addr string, ttl time.Duration) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &RedisCache{client: rdb, ttl: ttl}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (Result, bool) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return Result{}, false
	}
	var r Result
	if err := json.Unmarshal(val, &r); err != nil {
		return Result{}, false
	}
	return r, true
}

func (c *RedisCache) Set(ctx context.Context, key string, r Result) error {
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, b, c.ttl).Err()
}

func (c *RedisCache) Close() error { return c.client.Close() }

// cacheKey hashes the request fields together with the model salt and policy.
// encoding/json sorts map keys, so equal field sets hash equally.
func cacheKey(salt, policy string, fields map[string]any) (string, error) {
	b, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(salt))
	h.Write([]byte{0})
	h.Write([]byte(policy))
	h.Write([]byte{0})
	h.Write(b)
	return cachePrefix + hex.EncodeToString(h.Sum(nil)), nil
}
