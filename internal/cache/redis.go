package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig captures the connection parameters for the Redis-backed store.
type RedisConfig struct {
	Address  string
	Username string
	Password string
	DB       int
	TLS      bool
	PoolSize int
	Timeout  time.Duration
}

const defaultRedisTimeout = 5 * time.Second
const redisKeyPrefix = "chatrelay:"

// RedisClient implements Store on top of a pooled go-redis client. Every key
// is namespaced with the chatrelay prefix.
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient creates a new Redis store. It pings the server eagerly so that
// misconfiguration is surfaced during application startup.
func NewRedisClient(cfg RedisConfig) (*RedisClient, error) {
	cfg.Address = strings.TrimSpace(cfg.Address)
	if cfg.Address == "" {
		return nil, errors.New("redis: address is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRedisTimeout
	}

	opts := &redis.Options{
		Addr:         cfg.Address,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &RedisClient{client: client}, nil
}

// Close releases the connection pool.
func (c *RedisClient) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Ping reports whether the server is reachable.
func (c *RedisClient) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("redis: client not initialised")
	}
	return c.client.Ping(ctx).Err()
}

// IncrementWithTTL increments the supplied key and returns the current count
// and the remaining time-to-live. The window starts with the first increment.
// A counter found without an expiry gets one, so a lost PEXPIRE cannot leave
// the key alive forever.
func (c *RedisClient) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}
	prefixedKey := prefixed(key)

	var (
		incr *redis.IntCmd
		pttl *redis.DurationCmd
	)
	if _, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, prefixedKey)
		pttl = pipe.PTTL(ctx, prefixedKey)
		return nil
	}); err != nil {
		return 0, 0, err
	}

	count := incr.Val()
	ttl := pttl.Val()
	if ttl >= 0 {
		return count, ttl, nil
	}

	if err := c.client.PExpire(ctx, prefixedKey, window).Err(); err != nil {
		return count, window, err
	}
	return count, window, nil
}

// Set stores a value. A non-positive ttl keeps the key until it is deleted.
func (c *RedisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return c.client.Set(ctx, prefixed(key), value, ttl).Err()
}

// Get retrieves the value associated with a key.
func (c *RedisClient) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.client.Get(ctx, prefixed(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Delete removes one or more keys, ignoring missing keys.
func (c *RedisClient) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixedKeys := make([]string, 0, len(keys))
	for _, key := range keys {
		prefixedKeys = append(prefixedKeys, prefixed(key))
	}
	return c.client.Del(ctx, prefixedKeys...).Err()
}

func prefixed(key string) string {
	normalized := normalizeKey(key)
	if strings.HasPrefix(normalized, redisKeyPrefix) {
		return normalized
	}
	return redisKeyPrefix + normalized
}

func normalizeKey(key string) string {
	return strings.TrimSpace(key)
}
