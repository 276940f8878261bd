package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/chatrelay/internal/api"
	"github.com/charlesng35/chatrelay/internal/app"
	iauth "github.com/charlesng35/chatrelay/internal/auth"
	"github.com/charlesng35/chatrelay/internal/cache"
	sharedtestutil "github.com/charlesng35/chatrelay/internal/database/testutil"
	"github.com/charlesng35/chatrelay/internal/monitoring"
	"github.com/charlesng35/chatrelay/internal/presence"
	"github.com/charlesng35/chatrelay/internal/realtime"
	"github.com/charlesng35/chatrelay/internal/services"
	"github.com/charlesng35/chatrelay/pkg/response"
)

const jwtSecret = "test-suite-super-secret-key-32-bytes!!"

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T        *testing.T
	DB       *gorm.DB
	Config   *app.Config
	Router   *gin.Engine
	Hub      *realtime.Hub
	JWT      *iauth.JWTService
	Messages *services.MessageService
	Mirror   *presence.Mirror
	Archiver *services.Archiver
	Monitor  *monitoring.Module
}

// Option tweaks the configuration used to build an Env.
type Option func(*app.Config)

// WithJWTIdentity switches socket identity resolution to verified tokens.
func WithJWTIdentity() Option {
	return func(cfg *app.Config) {
		cfg.Realtime.Auth.Mode = iauth.ModeJWT
	}
}

// WithEnforcedAuthor overwrites relayed authors with the registered identity.
func WithEnforcedAuthor() Option {
	return func(cfg *app.Config) {
		cfg.Realtime.EnforceAuthor = true
	}
}

// WithRateLimit enables the rate limiter on /ws and room creation.
func WithRateLimit(requests int, window time.Duration) Option {
	return func(cfg *app.Config) {
		cfg.Server.RateLimit = app.RateLimitConfig{Requests: requests, Window: window}
	}
}

// NewEnv provisions a fresh handler test environment with migrations and seed rooms applied.
func NewEnv(t *testing.T, opts ...Option) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	cfg := &app.Config{
		Server: app.ServerConfig{
			Port:           3001,
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Realtime: app.RealtimeConfig{
			Auth:     app.RealtimeAuthConfig{Mode: iauth.ModeTrust},
			PongWait: 5 * time.Second,
		},
		Presence: app.PresenceConfig{Enabled: true, TTL: time.Minute, QueueSize: 16},
		Chat: app.ChatConfig{
			DefaultRooms: []string{"general"},
			Archive:      app.ArchiveConfig{Enabled: true, RetentionDays: 30, Buffer: 16},
		},
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{Secret: jwtSecret, Issuer: "test-suite", TTL: time.Hour},
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate(), sharedtestutil.WithRooms(cfg.Chat.Rooms()...))

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	require.NoError(t, err)
	identity, err := iauth.NewIdentityResolver(cfg.Realtime.AuthMode(), jwtSvc)
	require.NoError(t, err)

	rooms, err := services.NewRoomService(db)
	require.NoError(t, err)
	messages, err := services.NewMessageService(db)
	require.NoError(t, err)
	archiver, err := services.NewArchiver(messages, cfg.Chat.Archive.Buffer)
	require.NoError(t, err)

	store := cache.NewDatabaseStore(db)
	mirror, err := presence.NewMirror(store, cfg.Presence.TTL, cfg.Presence.QueueSize)
	require.NoError(t, err)

	hub := realtime.NewHub(
		realtime.WithObserver(archiver),
		realtime.WithObserver(mirror),
		realtime.WithEnforcedAuthor(cfg.Realtime.EnforceAuthor),
	)
	t.Cleanup(func() {
		hub.Close()
		archiver.Close()
		mirror.Close()
	})

	monitor := monitoring.NewModule(monitoring.Options{Gatherer: prometheus.NewRegistry()})

	router, err := api.NewRouter(api.Dependencies{
		Config:   cfg,
		Hub:      hub,
		Socket:   realtime.NewServer(hub, cfg.SocketConfig()),
		Identity: identity,
		Rooms:    rooms,
		Messages: messages,
		Mirror:   mirror,
		Monitor:  monitor,
	})
	require.NoError(t, err)

	return &Env{
		T:        t,
		DB:       db,
		Config:   cfg,
		Router:   router,
		Hub:      hub,
		JWT:      jwtSvc,
		Messages: messages,
		Mirror:   mirror,
		Archiver: archiver,
		Monitor:  monitor,
	}
}

// Token issues an access token for userID.
func (e *Env) Token(userID string) string {
	e.T.Helper()
	token, err := e.JWT.GenerateAccessToken(iauth.AccessTokenInput{UserID: userID})
	require.NoError(e.T, err)
	return token
}

// StartServer serves the router over a real listener and returns the
// websocket base URL for /ws.
func (e *Env) StartServer() string {
	e.T.Helper()
	srv := httptest.NewServer(e.Router)
	e.T.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
