package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveConnections tracks live realtime connections (authenticated and anonymous).
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatrelay_active_connections",
			Help: "Number of live realtime connections",
		},
	)

	// RegisteredUsers tracks identities currently present in the connection registry.
	RegisteredUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatrelay_registered_users",
			Help: "Number of user identities bound to a live connection",
		},
	)

	// Connections counts accepted connections by kind (authenticated|anonymous).
	Connections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_connections_total",
			Help: "Total number of accepted realtime connections",
		},
		[]string{"kind"},
	)

	// Evictions counts connections force-closed by the single-session policy.
	Evictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatrelay_session_evictions_total",
			Help: "Total number of connections evicted by a newer session for the same user",
		},
	)

	// RoomJoins counts join_room requests that added a new membership.
	RoomJoins = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatrelay_room_joins_total",
			Help: "Total number of room memberships created",
		},
	)

	// RelayedMessages counts send_message events accepted for fan-out.
	RelayedMessages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatrelay_relayed_messages_total",
			Help: "Total number of chat messages accepted for relay",
		},
	)

	// Deliveries counts per-recipient outcomes (delivered|dropped).
	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_deliveries_total",
			Help: "Total number of per-recipient deliveries",
		},
		[]string{"result"},
	)

	// ArchiveQueueDrops counts messages the archive queue rejected because it was full.
	ArchiveQueueDrops = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatrelay_archive_queue_drops_total",
			Help: "Total number of chat messages not archived due to a full queue",
		},
	)

	// PresenceQueueDrops counts presence updates discarded because the mirror queue was full.
	PresenceQueueDrops = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatrelay_presence_queue_drops_total",
			Help: "Total number of presence updates not mirrored due to a full queue",
		},
	)

	// MaintenanceRuns counts scheduled maintenance jobs by job and result.
	MaintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_maintenance_runs_total",
			Help: "Total number of maintenance job executions",
		},
		[]string{"job", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatrelay_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
