package postgres

import (
	"strings"
	"testing"
	"time"
)

func TestConfigFromEnvDefaults(t *testing.T) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv() err=%v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() err=%v", err)
	}
	if !strings.Contains(cfg.URL, "carbonledger") {
		t.Fatalf("unexpected default URL %q", cfg.URL)
	}
}

func TestConfigValidateRejectsBadValues(t *testing.T) {
	base := Config{
		URL:          "postgres://localhost/carbonledger",
		PingTimeout:  time.Second,
		MaxOpenConns: 4,
		MaxIdleConns: 2,
	}

	cfg := base
	cfg.URL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for empty URL")
	}

	cfg = base
	cfg.MaxIdleConns = 8
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for idle > open")
	}
}
