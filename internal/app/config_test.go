package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/chatrelay/internal/auth"
)

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join("testdata")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "console", cfg.Server.LogFormat)
	require.Equal(t, []string{"https://chat.example.com", "http://localhost:5173"}, cfg.Server.AllowedOrigins)
	require.Equal(t, 20*time.Second, cfg.Server.ShutdownTimeout)
	require.Equal(t, 30, cfg.Server.RateLimit.Requests)
	require.Equal(t, 30*time.Second, cfg.Server.RateLimit.Window)

	require.Equal(t, "jwt", cfg.Realtime.AuthMode())
	require.True(t, cfg.Realtime.EnforceAuthor)
	require.Equal(t, 128, cfg.Realtime.SendBuffer)
	require.Equal(t, 45*time.Second, cfg.Realtime.PongWait)
	require.Equal(t, int64(32768), cfg.Realtime.MaxMessageSize)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.True(t, cfg.Database.Postgres.Enabled)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)

	require.True(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, 20, cfg.Cache.Redis.PoolSize)

	require.True(t, cfg.Presence.Enabled, "default applies when the file omits it")
	require.Equal(t, 90*time.Second, cfg.Presence.TTL)
	require.Equal(t, "@every 30s", cfg.Presence.RefreshSchedule)
	require.Equal(t, 512, cfg.Presence.QueueSize)

	require.Equal(t, []string{"general", "random"}, cfg.Chat.Rooms())
	require.Equal(t, 14, cfg.Chat.Archive.RetentionDays)
	require.Equal(t, "0 3 * * *", cfg.Chat.Archive.PruneSchedule)
	require.Equal(t, 2048, cfg.Chat.Archive.Buffer)

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, "accounts.example.com", cfg.Auth.JWT.Issuer)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.TTL)

	require.Equal(t, "/internal/metrics", cfg.Monitoring.Prometheus.Endpoint)
	require.False(t, cfg.Monitoring.Health.Enabled)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 3001, cfg.Server.Port)
	require.Equal(t, []string{"http://localhost:5173"}, cfg.Server.AllowedOrigins)
	require.Equal(t, "trust", cfg.Realtime.AuthMode())
	require.False(t, cfg.Realtime.EnforceAuthor)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.False(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, 2*time.Minute, cfg.Presence.TTL)
	require.Equal(t, []string{"general"}, cfg.Chat.DefaultRooms)
	require.Equal(t, 30, cfg.Chat.Archive.RetentionDays)
	require.True(t, cfg.Monitoring.Health.Enabled)
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("CHATRELAY_SERVER_PORT", "4000")
	t.Setenv("CHATRELAY_REALTIME_ENFORCE_AUTHOR", "true")
	t.Setenv("CHATRELAY_SERVER_ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 4000, cfg.Server.Port)
	require.True(t, cfg.Realtime.EnforceAuthor)
	require.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedOrigins)
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{Server: ServerConfig{Port: 3001}}
	require.NoError(t, cfg.Validate())

	cfg.Realtime.Auth.Mode = "ldap"
	require.ErrorContains(t, cfg.Validate(), "mode")

	cfg.Realtime.Auth.Mode = "jwt"
	require.ErrorContains(t, cfg.Validate(), "auth.jwt.secret is required")

	cfg.Auth.JWT.Secret = "secret"
	require.NoError(t, cfg.Validate())

	cfg.Server.Port = 0
	require.Error(t, cfg.Validate())
}

func TestAuthConfigAdapters(t *testing.T) {
	cfg := AuthConfig{JWT: JWTSettings{Secret: "secret", Issuer: "issuer"}}

	jwtCfg := cfg.JWTServiceConfig()
	require.Equal(t, "secret", jwtCfg.Secret)
	require.Equal(t, "issuer", jwtCfg.Issuer)
	require.Equal(t, auth.DefaultAccessTokenTTL, jwtCfg.AccessTokenTTL)
}

func TestSocketConfigAdapter(t *testing.T) {
	cfg := Config{
		Server:   ServerConfig{AllowedOrigins: []string{" http://localhost:5173 ", ""}},
		Realtime: RealtimeConfig{SendBuffer: 16, PongWait: time.Second, WriteWait: time.Second, MaxMessageSize: 1024},
	}

	socket := cfg.SocketConfig()
	require.Equal(t, []string{"http://localhost:5173"}, socket.AllowedOrigins)
	require.Equal(t, 16, socket.SendBuffer)
	require.Equal(t, int64(1024), socket.MaxMessageSize)
}

func TestRedisClientConfigAdapter(t *testing.T) {
	cfg := CacheConfig{Redis: RedisCacheConfig{Address: " redis:6379 ", DB: 1, PoolSize: 5}}

	redisCfg := cfg.RedisClientConfig()
	require.Equal(t, "redis:6379", redisCfg.Address)
	require.Equal(t, 1, redisCfg.DB)
	require.Equal(t, 5, redisCfg.PoolSize)
}
