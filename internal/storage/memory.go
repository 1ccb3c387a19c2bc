package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/park285/shootout-server/internal/domain"
	"github.com/park285/shootout-server/internal/shootout"
)

// Memory is an in-process Store used when no DATABASE_URL is configured.
type Memory struct {
	mu      sync.RWMutex
	players map[string]*domain.Player
	matches map[string]*domain.MatchRecord
	kicks   map[string][]domain.KickRecord // match id -> kicks in order
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		players: make(map[string]*domain.Player),
		matches: make(map[string]*domain.MatchRecord),
		kicks:   make(map[string][]domain.KickRecord),
	}
}

func (m *Memory) Close() error { return nil }

// playerLocked returns the stored player, creating an offline one if needed.
func (m *Memory) playerLocked(id string) *domain.Player {
	p, ok := m.players[id]
	if !ok {
		p = &domain.Player{ID: id, Status: string(shootout.PresenceOffline)}
		m.players[id] = p
	}
	p.UpdatedAt = time.Now()
	return p
}

func (m *Memory) UpsertPlayer(_ context.Context, id, name string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidPlayer
	}
	m.mu.Lock()
	p := m.playerLocked(id)
	if n := strings.TrimSpace(name); n != "" {
		p.Name = n
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Player(_ context.Context, id string) (*domain.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.players[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) CreateMatch(_ context.Context, playerAID, playerBID string) (string, error) {
	if strings.TrimSpace(playerAID) == "" || strings.TrimSpace(playerBID) == "" {
		return "", ErrInvalidPlayer
	}
	id := uuid.NewString()
	m.mu.Lock()
	m.playerLocked(playerAID)
	m.playerLocked(playerBID)
	m.matches[id] = &domain.MatchRecord{ID: id, Player1ID: playerAID, Player2ID: playerBID, StartedAt: time.Now()}
	m.mu.Unlock()
	return id, nil
}

func (m *Memory) RecordKick(_ context.Context, k shootout.Kick) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.matches[k.MatchID]; !ok {
		return ErrMatchNotFound
	}
	m.kicks[k.MatchID] = append(m.kicks[k.MatchID], domain.KickRecord{
		MatchID:             k.MatchID,
		Round:               k.Round,
		ShooterID:           k.ShooterID,
		GoalkeeperID:        k.GoalkeeperID,
		ShooterDirection:    k.ShotDirection,
		GoalkeeperDirection: k.SaveDirection,
		Result:              string(k.Outcome),
		CreatedAt:           time.Now(),
	})
	return nil
}

func (m *Memory) SetMatchWinner(_ context.Context, matchID, winnerID string, reason shootout.EndReason) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	match, ok := m.matches[matchID]
	if !ok {
		return ErrMatchNotFound
	}
	match.WinnerID = winnerID
	match.EndReason = string(reason)
	match.EndedAt = time.Now()
	return nil
}

func (m *Memory) AwardPoints(_ context.Context, playerID string, delta int) error {
	m.mu.Lock()
	m.playerLocked(playerID).Points += delta
	m.mu.Unlock()
	return nil
}

func (m *Memory) SetPresence(_ context.Context, playerID string, status shootout.Presence) error {
	m.mu.Lock()
	m.playerLocked(playerID).Status = string(status)
	m.mu.Unlock()
	return nil
}

func (m *Memory) ResetPresence(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range m.players {
		if p.Status != string(shootout.PresenceOffline) {
			p.Status = string(shootout.PresenceOffline)
			n++
		}
	}
	return n, nil
}

func (m *Memory) Match(_ context.Context, id string) (*domain.MatchRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	match, ok := m.matches[id]
	if !ok {
		return nil, nil
	}
	cp := *match
	return &cp, nil
}

func (m *Memory) MatchKicks(_ context.Context, matchID string) ([]domain.KickRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.KickRecord{}, m.kicks[matchID]...), nil
}

func (m *Memory) Leaderboard(_ context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make(map[string]*domain.LeaderboardEntry, len(m.players))
	for id, p := range m.players {
		entries[id] = &domain.LeaderboardEntry{PlayerID: id, Name: p.Name, Points: p.Points}
	}
	for _, match := range m.matches {
		if match.EndedAt.IsZero() {
			continue
		}
		for _, id := range []string{match.Player1ID, match.Player2ID} {
			if e := entries[id]; e != nil {
				e.Played++
			}
		}
		if e := entries[match.WinnerID]; e != nil {
			e.Wins++
		}
	}
	for _, list := range m.kicks {
		for _, k := range list {
			switch k.Result {
			case string(shootout.OutcomeGoal):
				if e := entries[k.ShooterID]; e != nil {
					e.GoalsScored++
				}
			case string(shootout.OutcomeSaved):
				if e := entries[k.GoalkeeperID]; e != nil {
					e.GoalsSaved++
				}
			}
		}
	}

	out := make([]domain.LeaderboardEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	if n := clampLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}
