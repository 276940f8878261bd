package monitoring

import (
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/charlesng35/chatrelay/pkg/metrics"
)

// Options control monitoring module configuration.
type Options struct {
	// Gatherer serves /metrics. Defaults to the process-wide Prometheus registry
	// holding the chatrelay collectors.
	Gatherer prometheus.Gatherer
	// ProbeTimeout bounds each health probe.
	ProbeTimeout time.Duration
}

// Module bundles the metrics endpoint, health probes and maintenance job state.
type Module struct {
	gatherer prometheus.Gatherer
	health   *HealthManager

	mu   sync.RWMutex
	jobs map[string]*maintenanceStats
}

// NewModule constructs a monitoring module.
func NewModule(opts Options) *Module {
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Module{
		gatherer: gatherer,
		health:   NewHealthManager(opts.ProbeTimeout),
		jobs:     make(map[string]*maintenanceStats),
	}
}

// Handler returns an http.Handler serving Prometheus metrics for this module.
func (m *Module) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Health exposes the health manager responsible for liveness and readiness probes.
func (m *Module) Health() *HealthManager {
	if m == nil {
		return nil
	}
	return m.health
}

// RecordMaintenanceRun records the completion of a maintenance job.
func (m *Module) RecordMaintenanceRun(job, result, message string, duration time.Duration) {
	job = normalizeLabel(job)
	if job == "" {
		job = "unknown"
	}
	result = normalizeLabel(result)
	if result == "" {
		result = "unknown"
	}
	metrics.MaintenanceRuns.WithLabelValues(job, result).Inc()

	if m == nil {
		return
	}
	m.mu.Lock()
	stats, ok := m.jobs[job]
	if !ok {
		stats = &maintenanceStats{}
		m.jobs[job] = stats
	}
	m.mu.Unlock()

	stats.record(result, strings.TrimSpace(message), duration)
}

// MaintenanceJobs returns a summary per recorded job, ordered by name.
func (m *Module) MaintenanceJobs() []MaintenanceJobSummary {
	if m == nil {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	summaries := make([]MaintenanceJobSummary, 0, len(m.jobs))
	for job, stats := range m.jobs {
		summaries = append(summaries, stats.snapshot(job))
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Job < summaries[j].Job })
	return summaries
}

func normalizeLabel(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
