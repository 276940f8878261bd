package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Identity modes accepted by realtime.auth.mode.
const (
	ModeTrust = "trust"
	ModeJWT   = "jwt"
)

// ErrInvalidCredentials reports a presented but unverifiable identity.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// IdentityResolver extracts the user identity a connecting client presents.
// An empty identity with a nil error means the client is anonymous.
type IdentityResolver struct {
	mode string
	jwt  *JWTService
}

// NewIdentityResolver builds a resolver for the given mode. The jwt mode
// requires a JWTService.
func NewIdentityResolver(mode string, jwtService *JWTService) (*IdentityResolver, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	switch mode {
	case "", ModeTrust:
		return &IdentityResolver{mode: ModeTrust}, nil
	case ModeJWT:
		if jwtService == nil {
			return nil, errors.New("auth: jwt mode requires a jwt service")
		}
		return &IdentityResolver{mode: ModeJWT, jwt: jwtService}, nil
	default:
		return nil, fmt.Errorf("auth: unsupported identity mode %q", mode)
	}
}

// Mode returns the active identity mode.
func (r *IdentityResolver) Mode() string {
	return r.mode
}

// Resolve returns the identity carried by req.
//
// In trust mode the userId query parameter (or X-User-Id header) is taken as
// is. In jwt mode a token query parameter or bearer Authorization header is
// verified and its uid claim is used.
func (r *IdentityResolver) Resolve(req *http.Request) (string, error) {
	if r == nil || req == nil {
		return "", nil
	}

	if r.mode == ModeJWT {
		token := bearerToken(req)
		if token == "" {
			return "", nil
		}
		claims, err := r.jwt.ValidateAccessToken(token)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
		}
		return claims.UserID, nil
	}

	if userID := strings.TrimSpace(req.URL.Query().Get("userId")); userID != "" {
		return userID, nil
	}
	return strings.TrimSpace(req.Header.Get("X-User-Id")), nil
}

func bearerToken(req *http.Request) string {
	if token := strings.TrimSpace(req.URL.Query().Get("token")); token != "" {
		return token
	}

	header := strings.TrimSpace(req.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
