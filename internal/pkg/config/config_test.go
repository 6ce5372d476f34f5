package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadDefaults(t *testing.T) {
	var cfg Config
	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.MapLookuper(map[string]string{}),
	}); err != nil {
		t.Fatalf("process: %v", err)
	}

	if cfg.Port != "8080" || !cfg.IsDevelopment() {
		t.Errorf("unexpected server defaults: %+v", cfg)
	}
	if cfg.Auth.AccessTokenTTL != 5*time.Minute || cfg.Auth.RefreshTokenTTL != 24*time.Hour {
		t.Errorf("unexpected token TTLs: %v / %v", cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	}
	if !cfg.Tasks.HideForbidden {
		t.Error("forbidden tasks must be hidden by default")
	}
	if cfg.Tasks.IdempotencyWait != 2*time.Second {
		t.Errorf("unexpected idempotency wait: %v", cfg.Tasks.IdempotencyWait)
	}
	if cfg.Mongo.Database != "task_tracker" || cfg.Tasks.AuditWorkers != 4 {
		t.Errorf("unexpected store defaults: %+v %+v", cfg.Mongo, cfg.Tasks)
	}
}

func TestLoadOverrides(t *testing.T) {
	var cfg Config
	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target: &cfg,
		Lookuper: envconfig.MapLookuper(map[string]string{
			"AUTHZ_HIDE_FORBIDDEN": "false",
			"ACCESS_TOKEN_TTL":     "1m",
			"ENV":                  "production",
		}),
	}); err != nil {
		t.Fatalf("process: %v", err)
	}

	if cfg.Tasks.HideForbidden {
		t.Error("expected AUTHZ_HIDE_FORBIDDEN=false to be honoured")
	}
	if cfg.Auth.AccessTokenTTL != time.Minute {
		t.Errorf("expected 1m access TTL, got %v", cfg.Auth.AccessTokenTTL)
	}
	if cfg.IsDevelopment() {
		t.Error("expected production env")
	}
}
