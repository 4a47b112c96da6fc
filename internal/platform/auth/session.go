package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const sessionTokenPrefix = "cledger_session_v1"

var (
	ErrSessionTokenInvalid = errors.New("session token is invalid")
	ErrSessionTokenExpired = errors.New("session token is expired")
)

// SessionClaims name the logged-in account. UserKey is also the audit
// actor and record owner; Roles travel inside the token so a request
// never needs a user lookup.
type SessionClaims struct {
	UserKey       string   `json:"user_key"`
	Username      string   `json:"username"`
	Email         string   `json:"email,omitempty"`
	Roles         []string `json:"roles,omitempty"`
	IssuedAtUnix  int64    `json:"iat"`
	ExpiresAtUnix int64    `json:"exp"`
}

func GenerateSessionToken(secret string, claims SessionClaims, now time.Time) (string, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return "", errors.New("secret is required")
	}
	claims.UserKey = strings.TrimSpace(claims.UserKey)
	claims.Username = strings.TrimSpace(claims.Username)
	if claims.UserKey == "" {
		return "", errors.New("user_key is required")
	}

	if now.IsZero() {
		now = time.Now().UTC()
	}
	if claims.IssuedAtUnix == 0 {
		claims.IssuedAtUnix = now.UTC().Unix()
	}
	if claims.ExpiresAtUnix == 0 {
		return "", errors.New("exp is required")
	}
	if claims.ExpiresAtUnix <= now.UTC().Unix() {
		return "", errors.New("exp must be in the future")
	}

	payloadJSON, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}
	payloadB64 := base64.RawURLEncoding.EncodeToString(payloadJSON)
	sigB64, err := computeSessionSignature(secret, payloadB64)
	if err != nil {
		return "", err
	}
	return strings.Join([]string{sessionTokenPrefix, payloadB64, sigB64}, "."), nil
}

func VerifySessionToken(secret string, token string, now time.Time) (SessionClaims, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return SessionClaims{}, errors.New("secret is required")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return SessionClaims{}, ErrSessionTokenInvalid
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return SessionClaims{}, ErrSessionTokenInvalid
	}
	if parts[0] != sessionTokenPrefix {
		return SessionClaims{}, ErrSessionTokenInvalid
	}
	payloadB64 := strings.TrimSpace(parts[1])
	sigB64 := strings.TrimSpace(parts[2])
	if payloadB64 == "" || sigB64 == "" {
		return SessionClaims{}, ErrSessionTokenInvalid
	}

	expectedB64, err := computeSessionSignature(secret, payloadB64)
	if err != nil {
		return SessionClaims{}, err
	}
	expectedSig, err := base64.RawURLEncoding.DecodeString(expectedB64)
	if err != nil {
		return SessionClaims{}, ErrSessionTokenInvalid
	}
	gotSig, err := base64.RawURLEncoding.DecodeString(sigB64)
	if err != nil {
		return SessionClaims{}, ErrSessionTokenInvalid
	}
	if !hmac.Equal(expectedSig, gotSig) {
		return SessionClaims{}, ErrSessionTokenInvalid
	}

	payloadJSON, err := base64.RawURLEncoding.DecodeString(payloadB64)
	if err != nil {
		return SessionClaims{}, ErrSessionTokenInvalid
	}
	var claims SessionClaims
	if err := json.Unmarshal(payloadJSON, &claims); err != nil {
		return SessionClaims{}, ErrSessionTokenInvalid
	}
	claims.UserKey = strings.TrimSpace(claims.UserKey)
	claims.Username = strings.TrimSpace(claims.Username)
	if claims.UserKey == "" || claims.ExpiresAtUnix == 0 {
		return SessionClaims{}, ErrSessionTokenInvalid
	}

	if now.IsZero() {
		now = time.Now().UTC()
	}
	if claims.ExpiresAtUnix <= now.UTC().Unix() {
		return SessionClaims{}, ErrSessionTokenExpired
	}

	return claims, nil
}

func computeSessionSignature(secret string, payloadB64 string) (string, error) {
	payloadB64 = strings.TrimSpace(payloadB64)
	if payloadB64 == "" {
		return "", errors.New("payload is required")
	}
	mac := hmac.New(sha256.New, []byte(secret))
	if _, err := mac.Write([]byte("carbonledger-session-v1\n")); err != nil {
		return "", err
	}
	if _, err := mac.Write([]byte(payloadB64)); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}
