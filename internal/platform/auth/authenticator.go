package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) (Identity, error)
}

// LocalAuthenticator verifies HMAC session tokens minted at login. The
// token is read from the Authorization header first, then the session
// cookie.
type LocalAuthenticator struct {
	cfg Config
}

func NewLocalAuthenticator(cfg Config) (*LocalAuthenticator, error) {
	if cfg.Mode != ModeLocal {
		return nil, errors.New("auth mode must be local")
	}
	if strings.TrimSpace(cfg.SessionSecret) == "" {
		return nil, errors.New("session secret is required")
	}
	return &LocalAuthenticator{cfg: cfg}, nil
}

func (a *LocalAuthenticator) Authenticate(ctx context.Context, r *http.Request) (Identity, error) {
	rawToken := tokenFromHeader(r)
	if rawToken == "" {
		rawToken = tokenFromCookie(r, a.cfg.SessionCookieName)
	}
	if rawToken == "" {
		return Identity{}, ErrUnauthenticated
	}

	claims, err := VerifySessionToken(a.cfg.SessionSecret, rawToken, time.Now().UTC())
	if err != nil {
		return Identity{}, err
	}
	return Identity{
		Subject:  claims.UserKey,
		Username: claims.Username,
		Email:    claims.Email,
		Roles:    claims.Roles,
	}, nil
}

type DevAuthenticator struct {
	identity Identity
}

func NewDevAuthenticator(cfg Config) *DevAuthenticator {
	return &DevAuthenticator{
		identity: Identity{
			Subject:  cfg.DevSubject,
			Username: cfg.DevSubject,
			Email:    cfg.DevEmail,
			Roles:    cfg.DevRoles,
		},
	}
}

func (a *DevAuthenticator) Authenticate(ctx context.Context, r *http.Request) (Identity, error) {
	return a.identity, nil
}

func tokenFromHeader(r *http.Request) string {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if authz == "" {
		return ""
	}
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func tokenFromCookie(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}
