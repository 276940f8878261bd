package app

import (
	"strings"

	"github.com/charlesng35/chatrelay/internal/auth"
	"github.com/charlesng35/chatrelay/internal/realtime"
)

// SocketConfig converts the realtime settings into the socket server representation.
func (c Config) SocketConfig() realtime.SocketConfig {
	return realtime.SocketConfig{
		WriteWait:      c.Realtime.WriteWait,
		PongWait:       c.Realtime.PongWait,
		MaxMessageSize: c.Realtime.MaxMessageSize,
		SendBuffer:     c.Realtime.SendBuffer,
		AllowedOrigins: trimAll(c.Server.AllowedOrigins),
	}
}

// AuthMode returns the normalised identity mode, defaulting to trust.
func (c RealtimeConfig) AuthMode() string {
	mode := strings.ToLower(strings.TrimSpace(c.Auth.Mode))
	if mode == "" {
		return "trust"
	}
	return mode
}

// JWTServiceConfig returns the verifier settings for jwt identity mode.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	cfg := auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: c.JWT.TTL,
	}
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = auth.DefaultAccessTokenTTL
	}
	return cfg
}

// Rooms returns the trimmed, non-empty default room names.
func (c ChatConfig) Rooms() []string {
	return trimAll(c.DefaultRooms)
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}
	return out
}
