package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/park285/shootout-server/internal/shootout"
)

func TestMemoryMatchLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.UpsertPlayer(ctx, "a", "Alice"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	id, err := m.CreateMatch(ctx, "a", "b")
	if err != nil || id == "" {
		t.Fatalf("create match: %q %v", id, err)
	}
	kicks := []shootout.Kick{
		{MatchID: id, Round: 1, ShooterID: "a", GoalkeeperID: "b", ShotDirection: "Left", SaveDirection: "Right", Outcome: shootout.OutcomeGoal},
		{MatchID: id, Round: 1, ShooterID: "b", GoalkeeperID: "a", ShotDirection: "Left", SaveDirection: "Left", Outcome: shootout.OutcomeSaved},
	}
	for _, k := range kicks {
		if err := m.RecordKick(ctx, k); err != nil {
			t.Fatalf("record kick: %v", err)
		}
	}
	if err := m.SetMatchWinner(ctx, id, "a", shootout.ReasonNormal); err != nil {
		t.Fatalf("set winner: %v", err)
	}
	if err := m.AwardPoints(ctx, "a", 3); err != nil {
		t.Fatalf("award: %v", err)
	}

	rec, err := m.Match(ctx, id)
	if err != nil || rec == nil || rec.WinnerID != "a" || rec.EndReason != "normal" || rec.EndedAt.IsZero() {
		t.Fatalf("match record: %+v %v", rec, err)
	}
	got, err := m.MatchKicks(ctx, id)
	if err != nil || len(got) != 2 || got[0].Result != "goal" || got[1].GoalkeeperDirection != "Left" {
		t.Fatalf("kicks: %+v %v", got, err)
	}

	board, err := m.Leaderboard(ctx, 10)
	if err != nil || len(board) != 2 {
		t.Fatalf("leaderboard: %+v %v", board, err)
	}
	top := board[0]
	if top.PlayerID != "a" || top.Name != "Alice" || top.Points != 3 || top.Wins != 1 || top.Played != 1 || top.GoalsScored != 1 || top.GoalsSaved != 1 {
		t.Fatalf("top entry: %+v", top)
	}
	if board[1].PlayerID != "b" || board[1].Wins != 0 || board[1].Played != 1 {
		t.Fatalf("second entry: %+v", board[1])
	}
}

func TestMemoryUnknownMatch(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.SetMatchWinner(ctx, "nope", "a", shootout.ReasonNormal); !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := m.RecordKick(ctx, shootout.Kick{MatchID: "nope"}); !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if rec, err := m.Match(ctx, "nope"); rec != nil || err != nil {
		t.Fatalf("expected nil match, got %+v %v", rec, err)
	}
}

func TestMemoryPresenceReset(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.SetPresence(ctx, "a", shootout.PresenceInGame)
	_ = m.SetPresence(ctx, "b", shootout.PresenceOnline)
	_ = m.SetPresence(ctx, "c", shootout.PresenceOffline)
	n, err := m.ResetPresence(ctx)
	if err != nil || n != 2 {
		t.Fatalf("reset: %d %v", n, err)
	}
	p, _ := m.Player(ctx, "a")
	if p == nil || p.Status != "offline" {
		t.Fatalf("player a: %+v", p)
	}
}

func TestMemoryUpsertKeepsName(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.UpsertPlayer(ctx, "a", "Alice")
	_ = m.UpsertPlayer(ctx, "a", "")
	p, _ := m.Player(ctx, "a")
	if p.Name != "Alice" {
		t.Fatalf("name overwritten: %+v", p)
	}
	if err := m.UpsertPlayer(ctx, " ", "x"); !errors.Is(err, ErrInvalidPlayer) {
		t.Fatalf("blank id: %v", err)
	}
}

func TestClampLimit(t *testing.T) {
	if clampLimit(0) != defaultLeaderboardLimit || clampLimit(500) != 100 || clampLimit(7) != 7 {
		t.Fatalf("clampLimit misbehaves")
	}
}
