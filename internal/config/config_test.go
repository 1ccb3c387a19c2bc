package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"LISTEN_ADDR", "ADMIN_ADDR", "TURN_TIMEOUT_SEC", "WIN_BONUS_POINTS", "SCHEDULER_WORKERS", "MAX_CONCURRENT_MATCHES", "FIRST_MOVE_DELAY_MS", "REMATCH_PROMPT_DELAY_SEC", "DATABASE_URL", "REDIS_URL"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":8080" || cfg.AdminAddr != ":8081" {
		t.Fatalf("addrs = %q %q", cfg.ListenAddr, cfg.AdminAddr)
	}
	if cfg.TurnTimeout != 15*time.Second || cfg.FirstMoveDelay != 500*time.Millisecond || cfg.RematchPromptDelay != 3*time.Second {
		t.Fatalf("unexpected delays: %+v", cfg)
	}
	if cfg.WinBonusPoints != 3 || cfg.MaxConcurrentMatches != 200 {
		t.Fatalf("unexpected limits: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TURN_TIMEOUT_SEC", "20")
	t.Setenv("WIN_BONUS_POINTS", "0")
	t.Setenv("SCHEDULER_WORKERS", "1")
	t.Setenv("MAX_CONCURRENT_MATCHES", "abc")
	t.Setenv("ALLOWED_ORIGINS", "example.com, ,*.example.org")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TurnTimeout != 20*time.Second {
		t.Fatalf("turn timeout = %v", cfg.TurnTimeout)
	}
	if cfg.WinBonusPoints != 0 {
		t.Fatalf("bonus = %d", cfg.WinBonusPoints)
	}
	if cfg.SchedulerWorkers != 2 {
		t.Fatalf("workers should be clamped to 2, got %d", cfg.SchedulerWorkers)
	}
	if cfg.MaxConcurrentMatches != 200 {
		t.Fatalf("invalid value should keep default, got %d", cfg.MaxConcurrentMatches)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "*.example.org" {
		t.Fatalf("origins = %v", cfg.AllowedOrigins)
	}
}

func TestLoadRejectsSameAddr(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("ADMIN_ADDR", ":9000")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error")
	}
}
