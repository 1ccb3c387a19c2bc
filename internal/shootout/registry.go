package shootout

import (
	"context"
	"errors"
	"sync"

	"github.com/park285/shootout-server/internal/obslog"
	"go.uber.org/zap"
)

var (
	ErrPlayerBusy     = errors.New("player is already in a match")
	ErrTooManyMatches = errors.New("too many concurrent matches")
)

// Registry tracks live sessions by player. A player is in at most one session.
type Registry struct {
	opts Options
	max  int

	mu       sync.RWMutex
	sessions map[string]*Session
	byPlayer map[string]*Session
	reserved map[string]bool
}

func NewRegistry(opts Options, maxConcurrent int) *Registry {
	return &Registry{
		opts:     opts,
		max:      maxConcurrent,
		sessions: make(map[string]*Session),
		byPlayer: make(map[string]*Session),
		reserved: make(map[string]bool),
	}
}

// Create pairs a and b in a new session and starts it.
func (r *Registry) Create(ctx context.Context, a, b Peer) (*Session, error) {
	if a == nil || b == nil || a.ID() == b.ID() {
		return nil, ErrInvalidPeers
	}
	if err := r.reserve(a.ID(), b.ID()); err != nil {
		return nil, err
	}

	opts := r.opts
	prev := opts.OnClose
	opts.OnClose = func(s *Session) {
		r.forget(s)
		if prev != nil {
			prev(s)
		}
	}
	s, err := NewSession(ctx, opts, a, b)
	if err != nil {
		r.release(a.ID(), b.ID())
		return nil, err
	}

	r.mu.Lock()
	delete(r.reserved, a.ID())
	delete(r.reserved, b.ID())
	r.sessions[s.ID()] = s
	r.byPlayer[a.ID()] = s
	r.byPlayer[b.ID()] = s
	r.mu.Unlock()

	if err := s.Start(ctx); err != nil {
		return nil, err
	}
	r.logger().Info("session_registered", zap.String("session_id", s.ID()), zap.Int("active", r.Count()))
	return s, nil
}

func (r *Registry) reserve(aID, bID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range []string{aID, bID} {
		if r.byPlayer[id] != nil || r.reserved[id] {
			return ErrPlayerBusy
		}
	}
	if r.max > 0 && len(r.sessions)+len(r.reserved)/2 >= r.max {
		return ErrTooManyMatches
	}
	r.reserved[aID] = true
	r.reserved[bID] = true
	return nil
}

func (r *Registry) release(ids ...string) {
	r.mu.Lock()
	for _, id := range ids {
		delete(r.reserved, id)
	}
	r.mu.Unlock()
}

func (r *Registry) forget(s *Session) {
	r.mu.Lock()
	delete(r.sessions, s.ID())
	for id, cur := range r.byPlayer {
		if cur == s {
			delete(r.byPlayer, id)
		}
	}
	r.mu.Unlock()
	r.logger().Info("session_closed", zap.String("session_id", s.ID()))
}

// SessionFor returns the live session playerID belongs to, or nil.
func (r *Registry) SessionFor(playerID string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byPlayer[playerID]
}

// Busy reports whether playerID is in a match or about to be.
func (r *Registry) Busy(playerID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byPlayer[playerID] != nil || r.reserved[playerID]
}

func (r *Registry) Lookup(sessionID string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[sessionID]
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sessions returns the live sessions in no particular order.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

func (r *Registry) logger() *zap.Logger {
	if r.opts.Logger != nil {
		return r.opts.Logger
	}
	return obslog.L()
}
