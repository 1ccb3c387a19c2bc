package storage

import (
	"context"
	"errors"

	"github.com/park285/shootout-server/internal/domain"
	"github.com/park285/shootout-server/internal/shootout"
)

var (
	ErrMatchNotFound = errors.New("match not found")
	ErrInvalidPlayer = errors.New("player id is required")
)

// Store is the durable side of the server: the session gateway plus the
// read queries behind the admin API.
type Store interface {
	shootout.Gateway

	UpsertPlayer(ctx context.Context, id, name string) error
	Player(ctx context.Context, id string) (*domain.Player, error)
	Match(ctx context.Context, id string) (*domain.MatchRecord, error)
	MatchKicks(ctx context.Context, matchID string) ([]domain.KickRecord, error)
	Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
	// ResetPresence marks every player offline and reports how many changed.
	ResetPresence(ctx context.Context) (int64, error)
	Close() error
}

const defaultLeaderboardLimit = 20

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLeaderboardLimit
	}
	if limit > 100 {
		return 100
	}
	return limit
}
