package auth

import (
	"os"
	"testing"
)

func TestConfigFromEnv_LocalRequiresSecret(t *testing.T) {
	_ = os.Unsetenv("AUTH_SESSION_SECRET")
	t.Setenv("AUTH_MODE", "local")

	if _, err := ConfigFromEnv(); err == nil {
		t.Fatalf("expected error without AUTH_SESSION_SECRET")
	}

	t.Setenv("AUTH_SESSION_SECRET", "s3cret")
	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv() err=%v", err)
	}
	if cfg.Mode != ModeLocal {
		t.Fatalf("Mode=%q, want local", cfg.Mode)
	}
	if cfg.SessionCookieName != "carbonledger_session" {
		t.Fatalf("SessionCookieName=%q", cfg.SessionCookieName)
	}
}

func TestConfigFromEnv_Dev(t *testing.T) {
	t.Setenv("AUTH_MODE", "dev")
	t.Setenv("DEV_AUTH_SUBJECT", "dev")
	t.Setenv("DEV_AUTH_ROLES", "admin,viewer")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv() err=%v", err)
	}
	if cfg.Mode != ModeDev {
		t.Fatalf("Mode=%q, want dev", cfg.Mode)
	}
	if len(cfg.DevRoles) != 2 {
		t.Fatalf("DevRoles=%v, want 2 roles", cfg.DevRoles)
	}
}

func TestConfigFromEnv_OIDC_RequiresIssuerAndClientID(t *testing.T) {
	_ = os.Unsetenv("OIDC_ISSUER_URL")
	_ = os.Unsetenv("OIDC_CLIENT_ID")
	t.Setenv("AUTH_MODE", "oidc")

	if _, err := ConfigFromEnv(); err == nil {
		t.Fatalf("expected error")
	}
}

func TestIsAdminUser(t *testing.T) {
	cfg := Config{AdminUsers: []string{"admin", "Ops"}}
	if !cfg.IsAdminUser("admin") || !cfg.IsAdminUser("ops") || !cfg.IsAdminUser(" ADMIN ") {
		t.Fatalf("expected allow-listed usernames to match")
	}
	if cfg.IsAdminUser("mallory") || cfg.IsAdminUser("") {
		t.Fatalf("unexpected admin match")
	}
}

func TestHasAtLeast(t *testing.T) {
	if !HasAtLeast([]string{"admin"}, RoleUser) {
		t.Fatalf("admin should satisfy user")
	}
	if HasAtLeast([]string{"viewer"}, RoleUser) {
		t.Fatalf("viewer should not satisfy user")
	}
	if HasAtLeast(nil, RoleViewer) {
		t.Fatalf("no roles should not satisfy viewer")
	}
	if HasAtLeast([]string{"admin"}, "unknown") {
		t.Fatalf("unknown required role must never pass")
	}
}
