package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultScanBatchSize = 100
	defaultPingTimeout   = 5 * time.Second
)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisCache implements Cache on Redis. Pattern deletes walk the keyspace with SCAN
// in batches so a large keyspace never blocks the server the way KEYS would.
type RedisCache struct {
	client        *redis.Client
	ownsClient    bool
	keyPrefix     string
	scanBatchSize int64
	logger        *zap.Logger
}

// RedisCacheOption is a functional option for configuring the cache
type RedisCacheOption func(*RedisCache)

// WithRedisLogger sets the logger for the cache
func WithRedisLogger(logger *zap.Logger) RedisCacheOption {
	return func(c *RedisCache) {
		c.logger = logger
	}
}

// WithKeyPrefix namespaces every key, e.g. "umkm:"
func WithKeyPrefix(prefix string) RedisCacheOption {
	return func(c *RedisCache) {
		c.keyPrefix = prefix
	}
}

// WithScanBatchSize sets the SCAN COUNT hint and the DEL batch size used by pattern deletes
func WithScanBatchSize(n int64) RedisCacheOption {
	return func(c *RedisCache) {
		if n > 0 {
			c.scanBatchSize = n
		}
	}
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(cfg RedisConfig, opts ...RedisCacheOption) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), defaultPingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c := NewRedisCacheWithClient(client, opts...)
	c.ownsClient = true
	return c, nil
}

// NewRedisCacheWithClient creates a cache with an existing Redis client.
// The caller retains ownership of the client.
func NewRedisCacheWithClient(client *redis.Client, opts ...RedisCacheOption) *RedisCache {
	c := &RedisCache{
		client:        client,
		scanBatchSize: defaultScanBatchSize,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisCache) key(k string) string {
	return c.keyPrefix + k
}

// Get retrieves and decodes a value
func (c *RedisCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.logger.Debug("Cache miss", zap.String("key", key))
		return false, nil
	}
	if err != nil {
		return false, &Error{Op: "get", Key: key, Err: err}
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Warn("Dropping corrupted cache entry", zap.String("key", key), zap.Error(err))
		_ = c.client.Del(ctx, c.key(key))
		return false, &Error{Op: "decode", Key: key, Err: err}
	}

	c.logger.Debug("Cache hit", zap.String("key", key))
	return true, nil
}

// Set encodes and stores a value
func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return &Error{Op: "encode", Key: key, Err: err}
	}
	if err := c.client.Set(ctx, c.key(key), data, ttl).Err(); err != nil {
		return &Error{Op: "set", Key: key, Err: err}
	}
	return nil
}

// Delete removes keys
func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		return &Error{Op: "delete", Key: keys[0], Err: err}
	}
	return nil
}

// DeleteByPattern removes all keys matching pattern.
// The full SCAN completes before any DEL, since deleting mid-iteration can make the cursor skip keys.
func (c *RedisCache) DeleteByPattern(ctx context.Context, pattern string) (int64, error) {
	keys, err := c.scanKeys(ctx, c.key(pattern))
	if err != nil {
		return 0, &Error{Op: "scan", Key: pattern, Err: err}
	}

	var deleted int64
	for start := 0; start < len(keys); start += int(c.scanBatchSize) {
		end := min(start+int(c.scanBatchSize), len(keys))
		n, err := c.client.Del(ctx, keys[start:end]...).Result()
		if err != nil {
			return deleted, &Error{Op: "delete", Key: pattern, Err: err}
		}
		deleted += n
	}

	c.logger.Debug("Deleted cache keys by pattern",
		zap.String("pattern", pattern),
		zap.Int("matched_count", len(keys)),
		zap.Int64("deleted_count", deleted))
	return deleted, nil
}

// scanKeys returns every key matching match. SCAN may repeat keys across pages.
func (c *RedisCache) scanKeys(ctx context.Context, match string) ([]string, error) {
	var (
		cursor uint64
		keys   []string
	)
	seen := make(map[string]struct{})
	for {
		page, next, err := c.client.Scan(ctx, cursor, match, c.scanBatchSize).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range page {
			if _, dup := seen[k]; !dup {
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

// Ping checks the connection
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the client if this cache created it
func (c *RedisCache) Close() error {
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}

var _ Cache = (*RedisCache)(nil)
