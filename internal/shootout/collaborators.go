package shootout

import (
	"context"
	"time"

	"github.com/park285/shootout-server/pkg/wire"
)

// Peer is one connected player.
type Peer interface {
	ID() string
	Name() string
	Send(ctx context.Context, ev wire.Event) error
}

// Gateway is the durable store for matches, kicks, points and presence.
// Implementations must be safe for concurrent use by many sessions.
type Gateway interface {
	CreateMatch(ctx context.Context, playerAID, playerBID string) (string, error)
	RecordKick(ctx context.Context, k Kick) error
	SetMatchWinner(ctx context.Context, matchID, winnerID string, reason EndReason) error
	AwardPoints(ctx context.Context, playerID string, delta int) error
	SetPresence(ctx context.Context, playerID string, status Presence) error
}

// Timer is a pending single-shot callback.
type Timer interface {
	Stop()
}

// Scheduler runs fn once after d on a background worker.
type Scheduler interface {
	After(d time.Duration, name string, fn func()) (Timer, error)
}

// Broadcaster delivers an event to every connected user.
type Broadcaster interface {
	Broadcast(ctx context.Context, ev wire.Event)
}

// Observer receives a snapshot after every state transition.
type Observer interface {
	Publish(ctx context.Context, snap Snapshot) error
}

// Texts renders user-facing messages by key.
type Texts interface {
	Text(key string, data map[string]any) string
}
