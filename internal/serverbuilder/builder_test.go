package serverbuilder

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/park285/shootout-server/internal/config"
	"github.com/park285/shootout-server/internal/storage"
)

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		ListenAddr:           ":0",
		AdminAddr:            ":1",
		TurnTimeout:          15 * time.Second,
		FirstMoveDelay:       500 * time.Millisecond,
		RematchPromptDelay:   3 * time.Second,
		ChallengeTTL:         30 * time.Second,
		WinBonusPoints:       3,
		SchedulerWorkers:     2,
		MaxConcurrentMatches: 10,
	}
}

func TestNewInMemory(t *testing.T) {
	d, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if _, ok := d.Store.(*storage.Memory); !ok {
		t.Fatalf("expected memory store, got %T", d.Store)
	}
	if d.Live != nil {
		t.Fatalf("live state should be off without REDIS_URL")
	}
	if d.WS == nil || d.Admin == nil || d.Registry == nil {
		t.Fatalf("incomplete deps: %+v", d)
	}
}

func TestNewWithRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	cfg := testConfig()
	cfg.RedisURL = "redis://" + mr.Addr() + "/0"
	d, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if d.Live == nil {
		t.Fatalf("expected live state store")
	}
}

func TestNewBadMessagesDir(t *testing.T) {
	cfg := testConfig()
	cfg.MessagesDir = t.TempDir() + "/missing"
	if _, err := New(cfg, nil); err == nil {
		t.Fatalf("expected error for missing messages dir")
	}
}
