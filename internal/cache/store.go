package cache

import (
	"context"
	"time"
)

// Store is the shared key/value cache behind the rate limiter and the
// presence mirror. Keys are plain strings; implementations may namespace them.
type Store interface {
	// IncrementWithTTL bumps a fixed-window counter. The window opens on the
	// first increment and later increments do not extend it. It returns the
	// count and the time left in the window.
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	// Set writes value. A non-positive ttl keeps it until deleted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get reports a missing or expired key as ok == false with a nil error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
}

var (
	_ Store = (*RedisClient)(nil)
	_ Store = (*DatabaseStore)(nil)
)
