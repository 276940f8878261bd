package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/chatrelay/internal/app"
	iauth "github.com/charlesng35/chatrelay/internal/auth"
	"github.com/charlesng35/chatrelay/internal/handlers"
	"github.com/charlesng35/chatrelay/internal/middleware"
	"github.com/charlesng35/chatrelay/internal/monitoring"
	"github.com/charlesng35/chatrelay/internal/realtime"
	"github.com/charlesng35/chatrelay/internal/services"
)

// Dependencies lists the runtime components the HTTP surface is built from.
// Messages, Mirror, Monitor and RateStore are optional.
type Dependencies struct {
	Config    *app.Config
	Hub       *realtime.Hub
	Socket    *realtime.Server
	Identity  *iauth.IdentityResolver
	Rooms     *services.RoomService
	Messages  *services.MessageService
	Mirror    handlers.PresenceMirror
	Monitor   *monitoring.Module
	RateStore middleware.RateStore
}

// NewRouter builds the Gin engine, wires middleware and registers the chat routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	cfg := deps.Config
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if deps.Hub == nil || deps.Socket == nil {
		return nil, fmt.Errorf("realtime hub and socket server must be provided")
	}
	if deps.Identity == nil {
		return nil, fmt.Errorf("identity resolver must be provided")
	}
	if deps.Rooms == nil {
		return nil, fmt.Errorf("room service must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics("/ws", metricsEndpoint(cfg)))
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins...))

	limit := rateLimiter(cfg.Server.RateLimit, deps.RateStore)

	registerHealthRoutes(r, cfg, deps.Monitor)
	registerRealtimeRoutes(r, handlers.NewRealtimeHandler(deps.Socket, deps.Identity), limit)

	api := r.Group("/api")
	registerChatRoutes(api, handlers.NewRoomHandler(deps.Rooms), handlers.NewMessageHandler(deps.Messages), limit)
	registerPresenceRoutes(api, handlers.NewPresenceHandler(deps.Hub, deps.Mirror))

	endpoint := ""
	if cfg.Monitoring.Prometheus.Enabled && deps.Monitor != nil {
		endpoint = metricsEndpoint(cfg)
		r.GET(endpoint, gin.WrapH(deps.Monitor.Handler()))
	}
	registerMonitoringRoutes(api, handlers.NewMonitoringHandler(deps.Monitor, deps.Hub, endpoint))

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

func rateLimiter(cfg app.RateLimitConfig, store middleware.RateStore) gin.HandlerFunc {
	if cfg.Requests <= 0 || cfg.Window <= 0 {
		return nil
	}
	if store == nil {
		store = middleware.NewMemoryRateStore()
	}
	return middleware.RateLimit(store, cfg.Requests, cfg.Window)
}

func metricsEndpoint(cfg *app.Config) string {
	endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
	if endpoint == "" {
		return "/metrics"
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return endpoint
}

func withLimit(limit gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	if limit == nil {
		return []gin.HandlerFunc{handler}
	}
	return []gin.HandlerFunc{limit, handler}
}
