package monitoring_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/chatrelay/internal/database/testutil"
	"github.com/charlesng35/chatrelay/internal/monitoring"
	"github.com/charlesng35/chatrelay/internal/monitoring/checks"
	"github.com/charlesng35/chatrelay/internal/realtime"
)

func TestHealthManagerEvaluate(t *testing.T) {
	t.Parallel()

	manager := monitoring.NewHealthManager(0)
	manager.RegisterReadiness(monitoring.NewCheck("database", func(ctx context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	}))
	manager.RegisterReadiness(monitoring.NewCheck("redis", func(ctx context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "connection refused"}
	}))

	report := manager.EvaluateReadiness(context.Background())
	require.False(t, report.Success)
	require.Equal(t, monitoring.StatusDown, report.Status)
	require.Len(t, report.Checks, 2)
	require.Equal(t, "redis", report.Checks[1].Component)

	live := manager.EvaluateLiveness(context.Background())
	require.True(t, live.Success)
	require.Empty(t, live.Checks)
}

func TestHealthManagerRecoversPanicsAndTimesOut(t *testing.T) {
	t.Parallel()

	manager := monitoring.NewHealthManager(20 * time.Millisecond)
	manager.RegisterLiveness(monitoring.NewCheck("panics", func(context.Context) monitoring.ProbeResult {
		panic("boom")
	}))
	manager.RegisterLiveness(monitoring.NewCheck("slow", func(ctx context.Context) monitoring.ProbeResult {
		<-ctx.Done()
		return monitoring.ResultFromError("slow", ctx.Err(), 0)
	}))

	report := manager.EvaluateLiveness(context.Background())
	require.Equal(t, monitoring.StatusDown, report.Status)
	require.Equal(t, "boom", report.Checks[0].Details)
	require.Equal(t, monitoring.StatusDegraded, report.Checks[1].Status)
}

func TestResultFromError(t *testing.T) {
	t.Parallel()

	require.Equal(t, monitoring.StatusUp, monitoring.ResultFromError("db", nil, time.Millisecond).Status)
	require.Equal(t, monitoring.StatusDown, monitoring.ResultFromError("db", errors.New("refused"), -1).Status)
}

func TestMaintenanceCheck(t *testing.T) {
	t.Parallel()

	mod := monitoring.NewModule(monitoring.Options{})
	check := checks.Maintenance(mod, 0)
	require.Equal(t, monitoring.StatusUp, check.Run(context.Background()).Status)

	mod.RecordMaintenanceRun("message_prune", "success", "", time.Second)
	mod.RecordMaintenanceRun("presence_refresh", "failure", "timeout", time.Second)

	jobs := mod.MaintenanceJobs()
	require.Len(t, jobs, 2)
	require.Equal(t, "message_prune", jobs[0].Job)
	require.False(t, jobs[0].LastSuccessAt.IsZero())
	require.EqualValues(t, 1, jobs[1].ConsecutiveFailures)

	result := check.Run(context.Background())
	require.Equal(t, monitoring.StatusDown, result.Status)
	require.Contains(t, result.Details, "presence_refresh")
}

func TestDatabaseCheck(t *testing.T) {
	t.Parallel()

	db := testutil.MustOpenTestDB(t)
	result := checks.Database(db, 0).Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)
	require.Contains(t, result.Details, "open")
	require.Equal(t, monitoring.StatusDown, checks.Database(nil, 0).Run(context.Background()).Status)
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestRedisCheck(t *testing.T) {
	t.Parallel()

	disabled := checks.Redis(nil, false, 0).Run(context.Background())
	require.Equal(t, monitoring.StatusUp, disabled.Status)
	require.Contains(t, disabled.Details, "database cache store")
	require.Equal(t, monitoring.StatusDegraded, checks.Redis(nil, true, 0).Run(context.Background()).Status)
	require.Equal(t, monitoring.StatusUp, checks.Redis(fakePinger{}, true, 0).Run(context.Background()).Status)
	require.Equal(t, monitoring.StatusDown, checks.Redis(fakePinger{err: errors.New("refused")}, true, 0).Run(context.Background()).Status)
}

func TestRealtimeCheck(t *testing.T) {
	t.Parallel()

	hub := realtime.NewHub()
	result := checks.Realtime(hub).Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)
	require.Equal(t, "0 connections, 0 users, 0 rooms", result.Details)

	require.Equal(t, monitoring.StatusDown, checks.Realtime(nil).Run(context.Background()).Status)
}

func TestModuleHandlerServesGatherer(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total", Help: "test"})
	registry.MustRegister(counter)
	counter.Inc()

	mod := monitoring.NewModule(monitoring.Options{Gatherer: registry})
	w := httptest.NewRecorder()
	mod.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "test_total 1")
}
