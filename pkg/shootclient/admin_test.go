package shootclient

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/park285/shootout-server/internal/adminapi"
	"github.com/park285/shootout-server/internal/storage"
)

func startAdmin(t *testing.T, opts adminapi.Options) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := adminapi.New(opts)
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return "http://" + ln.Addr().String()
}

func TestAdminLeaderboard(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	_ = store.UpsertPlayer(ctx, "a", "Alice")
	_ = store.AwardPoints(ctx, "a", 6)
	_ = store.UpsertPlayer(ctx, "b", "Bob")

	a := NewAdmin(startAdmin(t, adminapi.Options{Records: store}), WithTimeout(2*time.Second))
	rows, err := a.Leaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(rows) != 2 || rows[0].PlayerID != "a" || rows[0].Points != 6 {
		t.Fatalf("unexpected rows: %+v", rows)
	}

	if _, err := a.PlayerMatch(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAdminHealthDegraded(t *testing.T) {
	down := adminapi.Check{Name: "redis", Ping: func(context.Context) error { return errors.New("down") }}
	a := NewAdmin(startAdmin(t, adminapi.Options{Records: storage.NewMemory(), Checks: []adminapi.Check{down}}), WithRetry(1))
	h, err := a.Health(context.Background())
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if h.Status != "degraded" || h.Checks["redis"] != "down" {
		t.Fatalf("unexpected health: %+v", h)
	}
}
