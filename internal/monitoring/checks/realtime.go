package checks

import (
	"context"
	"fmt"
	"time"

	"github.com/charlesng35/chatrelay/internal/monitoring"
	"github.com/charlesng35/chatrelay/internal/realtime"
)

// RealtimeStats exposes the hub counters needed to evaluate realtime health.
type RealtimeStats interface {
	Stats() realtime.Stats
}

// Realtime reports the hub as up and surfaces its connection counts. A
// missing hub is reported as down.
func Realtime(hub RealtimeStats) monitoring.Check {
	return monitoring.NewCheck("realtime", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if hub == nil {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDown,
				Details:  "realtime hub unavailable",
				Duration: time.Since(start),
			}
		}

		stats := hub.Stats()
		return monitoring.ProbeResult{
			Status:   monitoring.StatusUp,
			Details:  fmt.Sprintf("%d connections, %d users, %d rooms", stats.Connections, stats.Users, stats.Rooms),
			Duration: time.Since(start),
		}
	})
}
