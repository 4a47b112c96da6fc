package auth

import (
	"testing"
	"time"
)

func TestSessionToken_RoundTrip(t *testing.T) {
	secret := "test-secret"
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	token, err := GenerateSessionToken(secret, SessionClaims{
		UserKey:       "u-123",
		Username:      "alice",
		Email:         "alice@example.com",
		Roles:         []string{"user"},
		ExpiresAtUnix: now.Add(time.Hour).Unix(),
	}, now)
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}

	claims, err := VerifySessionToken(secret, token, now.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("VerifySessionToken: %v", err)
	}
	if claims.UserKey != "u-123" {
		t.Fatalf("UserKey=%q, want %q", claims.UserKey, "u-123")
	}
	if claims.Username != "alice" {
		t.Fatalf("Username=%q, want %q", claims.Username, "alice")
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "user" {
		t.Fatalf("Roles=%v, want [user]", claims.Roles)
	}
	if claims.IssuedAtUnix != now.Unix() {
		t.Fatalf("IssuedAtUnix=%d, want %d", claims.IssuedAtUnix, now.Unix())
	}
}

func TestSessionToken_Expired(t *testing.T) {
	secret := "test-secret"
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	token, err := GenerateSessionToken(secret, SessionClaims{
		UserKey:       "u-123",
		ExpiresAtUnix: now.Add(time.Minute).Unix(),
	}, now)
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}

	_, err = VerifySessionToken(secret, token, now.Add(2*time.Minute))
	if err != ErrSessionTokenExpired {
		t.Fatalf("VerifySessionToken error=%v, want %v", err, ErrSessionTokenExpired)
	}
}

func TestSessionToken_WrongSecret(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	token, err := GenerateSessionToken("secret-a", SessionClaims{
		UserKey:       "u-123",
		ExpiresAtUnix: now.Add(time.Hour).Unix(),
	}, now)
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}

	_, err = VerifySessionToken("secret-b", token, now)
	if err != ErrSessionTokenInvalid {
		t.Fatalf("VerifySessionToken error=%v, want %v", err, ErrSessionTokenInvalid)
	}
}

func TestSessionToken_Garbage(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	for _, token := range []string{"", "x", "a.b", "wrong_prefix.b.c"} {
		if _, err := VerifySessionToken("secret", token, now); err != ErrSessionTokenInvalid {
			t.Fatalf("token %q: error=%v, want %v", token, err, ErrSessionTokenInvalid)
		}
	}
}

func TestPasswordHashAndVerify(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := VerifyPassword(hash, "correct horse battery"); err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if err := VerifyPassword(hash, "wrong password"); err != ErrPasswordMismatch {
		t.Fatalf("VerifyPassword error=%v, want %v", err, ErrPasswordMismatch)
	}
}

func TestPasswordTooShort(t *testing.T) {
	if _, err := HashPassword("short"); err == nil {
		t.Fatalf("expected error for short password")
	}
}
