package checks

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/chatrelay/internal/monitoring"
)

const defaultStoreTimeout = 2 * time.Second

// RedisPinger is the part of the Redis cache the readiness probe needs.
type RedisPinger interface {
	Ping(ctx context.Context) error
}

// Database probes the archive database and reports its pool usage.
func Database(db *gorm.DB, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("database", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if db == nil {
			return result(monitoring.StatusDown, "database not configured", start)
		}

		sqlDB, err := db.DB()
		if err != nil {
			return monitoring.ResultFromError("database", err, time.Since(start))
		}
		if err := pingWithin(ctx, timeout, sqlDB.PingContext); err != nil {
			return monitoring.ResultFromError("database", err, time.Since(start))
		}

		stats := sqlDB.Stats()
		return result(monitoring.StatusUp, fmt.Sprintf("%d open, %d in use", stats.OpenConnections, stats.InUse), start)
	})
}

// Redis probes the shared presence cache. With Redis disabled the database
// store serves the cache and the probe is up. Enabled but missing means
// startup fell back to the database store, which is degraded.
func Redis(client RedisPinger, enabled bool, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("redis", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		switch {
		case !enabled:
			return result(monitoring.StatusUp, "disabled, using database cache store", start)
		case client == nil:
			return result(monitoring.StatusDegraded, "unreachable at startup, using database cache store", start)
		}

		if err := pingWithin(ctx, timeout, client.Ping); err != nil {
			return monitoring.ResultFromError("redis", err, time.Since(start))
		}
		return result(monitoring.StatusUp, "", start)
	})
}

func pingWithin(ctx context.Context, timeout time.Duration, ping func(context.Context) error) error {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return ping(ctx)
}

func result(status monitoring.ProbeStatus, details string, start time.Time) monitoring.ProbeResult {
	return monitoring.ProbeResult{
		Status:   status,
		Details:  details,
		Duration: time.Since(start),
	}
}
