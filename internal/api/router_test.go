package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/chatrelay/internal/app"
	iauth "github.com/charlesng35/chatrelay/internal/auth"
	testutil "github.com/charlesng35/chatrelay/internal/database/testutil"
	"github.com/charlesng35/chatrelay/internal/monitoring"
	"github.com/charlesng35/chatrelay/internal/realtime"
	"github.com/charlesng35/chatrelay/internal/services"
	"github.com/charlesng35/chatrelay/pkg/metrics"
)

func newTestDependencies(t *testing.T, cfg *app.Config) Dependencies {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate(), testutil.WithRooms("general"))
	rooms, err := services.NewRoomService(db)
	require.NoError(t, err)
	identity, err := iauth.NewIdentityResolver(iauth.ModeTrust, nil)
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	registry.MustRegister(metrics.APILatency)

	hub := realtime.NewHub()
	t.Cleanup(hub.Close)

	return Dependencies{
		Config:   cfg,
		Hub:      hub,
		Socket:   realtime.NewServer(hub, realtime.SocketConfig{}),
		Identity: identity,
		Rooms:    rooms,
		Monitor:  monitoring.NewModule(monitoring.Options{Gatherer: registry}),
	}
}

func serve(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestNewRouterRequiresDependencies(t *testing.T) {
	_, err := NewRouter(Dependencies{})
	require.ErrorContains(t, err, "config must be provided")

	_, err = NewRouter(Dependencies{Config: &app.Config{}})
	require.ErrorContains(t, err, "realtime hub")
}

func TestRouterRegistersChatRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := &app.Config{Monitoring: app.MonitoringConfig{Health: app.HealthConfig{Enabled: true}}}
	router, err := NewRouter(newTestDependencies(t, cfg))
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health").Code)
	require.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/health/ready").Code)
	require.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/chat/rooms").Code)
	require.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/chat/rooms/general").Code)
	require.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/presence/alice").Code)

	// Archive disabled: history is unavailable rather than missing.
	require.Equal(t, http.StatusServiceUnavailable, serve(router, http.MethodGet, "/api/chat/messages/general").Code)

	// Plain HTTP requests to /ws fail the upgrade.
	require.Equal(t, http.StatusBadRequest, serve(router, http.MethodGet, "/ws").Code)

	require.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/api/unknown").Code)

	// Metrics are disabled in this configuration.
	require.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/metrics").Code)
}

func TestRouterHealthDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router, err := NewRouter(newTestDependencies(t, &app.Config{}))
	require.NoError(t, err)

	require.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/health/live").Code)
}

func TestRouterMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := &app.Config{Monitoring: app.MonitoringConfig{
		Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "internal/metrics"},
		Health:     app.HealthConfig{Enabled: true},
	}}
	router, err := NewRouter(newTestDependencies(t, cfg))
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/chat/rooms").Code)

	rec := serve(router, http.MethodGet, "/internal/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t,
		strings.Contains(rec.Body.String(), `chatrelay_api_latency_seconds_count{method="GET",path="/api/chat/rooms",status="200"}`),
		"metrics output missing latency series: %s", rec.Body.String(),
	)
}

func TestRouterCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := &app.Config{Server: app.ServerConfig{AllowedOrigins: []string{"http://localhost:5173"}}}
	router, err := NewRouter(newTestDependencies(t, cfg))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/chat/rooms", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}
