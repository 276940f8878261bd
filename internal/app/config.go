package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/charlesng35/chatrelay/pkg/validator"
)

// Config represents the runtime configuration for the chat relay.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Realtime   RealtimeConfig   `mapstructure:"realtime"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Presence   PresenceConfig   `mapstructure:"presence"`
	Chat       ChatConfig       `mapstructure:"chat"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int             `mapstructure:"port" validate:"min=1,max=65535"`
	LogLevel        string          `mapstructure:"log_level"`
	LogFormat       string          `mapstructure:"log_format" validate:"omitempty,oneof=json console"`
	AllowedOrigins  []string        `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig bounds connection attempts and room creation per client.
// A zero request count disables limiting.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests" validate:"min=0"`
	Window   time.Duration `mapstructure:"window"`
}

// RealtimeConfig tunes the websocket relay.
type RealtimeConfig struct {
	Auth           RealtimeAuthConfig `mapstructure:"auth"`
	EnforceAuthor  bool               `mapstructure:"enforce_author"`
	SendBuffer     int                `mapstructure:"send_buffer" validate:"min=0"`
	PongWait       time.Duration      `mapstructure:"pong_wait"`
	WriteWait      time.Duration      `mapstructure:"write_wait"`
	MaxMessageSize int64              `mapstructure:"max_message_size" validate:"min=0"`
}

// RealtimeAuthConfig selects how connecting clients declare their identity.
type RealtimeAuthConfig struct {
	Mode string `mapstructure:"mode" validate:"omitempty,oneof=trust jwt"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver" validate:"omitempty,oneof=sqlite postgres postgresql mysql"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// CacheConfig describes cache backends.
type CacheConfig struct {
	Redis RedisCacheConfig `mapstructure:"redis"`
}

// RedisCacheConfig holds Redis connection options.
type RedisCacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Address  string        `mapstructure:"address" validate:"required_if=Enabled true"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db" validate:"min=0"`
	TLS      bool          `mapstructure:"tls"`
	PoolSize int           `mapstructure:"pool_size" validate:"min=0"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// PresenceConfig controls the shared presence mirror.
type PresenceConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	TTL             time.Duration `mapstructure:"ttl"`
	RefreshSchedule string        `mapstructure:"refresh_schedule"`
	QueueSize       int           `mapstructure:"queue_size" validate:"min=0"`
}

// ChatConfig holds room directory and archive settings.
type ChatConfig struct {
	DefaultRooms []string      `mapstructure:"default_rooms" validate:"dive,max=128"`
	Archive      ArchiveConfig `mapstructure:"archive"`
}

// ArchiveConfig controls message persistence and retention.
type ArchiveConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	RetentionDays int    `mapstructure:"retention_days" validate:"min=0"`
	PruneSchedule string `mapstructure:"prune_schedule"`
	Buffer        int    `mapstructure:"buffer" validate:"min=0"`
}

// AuthConfig captures token verification settings.
type AuthConfig struct {
	JWT JWTSettings `mapstructure:"jwt"`
}

// JWTSettings configures JWT access tokens.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"access_token_ttl"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("CHATRELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks field constraints and cross-section requirements.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config: nil config")
	}
	if err := validator.ValidateStruct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if strings.EqualFold(strings.TrimSpace(c.Realtime.Auth.Mode), "jwt") && strings.TrimSpace(c.Auth.JWT.Secret) == "" {
		return errors.New("config: auth.jwt.secret is required when realtime.auth.mode is jwt")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.rate_limit.requests", 60)
	v.SetDefault("server.rate_limit.window", "1m")

	v.SetDefault("realtime.auth.mode", "trust")
	v.SetDefault("realtime.enforce_author", false)
	v.SetDefault("realtime.send_buffer", 64)
	v.SetDefault("realtime.pong_wait", "60s")
	v.SetDefault("realtime.write_wait", "10s")
	v.SetDefault("realtime.max_message_size", 64*1024)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/chatrelay.sqlite")

	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.address", "127.0.0.1:6379")
	v.SetDefault("cache.redis.username", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.tls", false)
	v.SetDefault("cache.redis.pool_size", 0)
	v.SetDefault("cache.redis.timeout", "5s")

	v.SetDefault("presence.enabled", true)
	v.SetDefault("presence.ttl", "2m")
	v.SetDefault("presence.refresh_schedule", "@every 1m")
	v.SetDefault("presence.queue_size", 256)

	v.SetDefault("chat.default_rooms", []string{"general"})
	v.SetDefault("chat.archive.enabled", true)
	v.SetDefault("chat.archive.retention_days", 30)
	v.SetDefault("chat.archive.prune_schedule", "@daily")
	v.SetDefault("chat.archive.buffer", 1024)

	v.SetDefault("auth.jwt.secret", "")
	v.SetDefault("auth.jwt.issuer", "chatrelay")
	v.SetDefault("auth.jwt.access_token_ttl", "15m")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)
	v.SetDefault("monitoring.health_check.probe_timeout", "3s")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
