package lobby

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidArgs      = errors.New("invalid arguments")
	ErrSelfChallenge    = errors.New("cannot challenge yourself")
	ErrAlreadyPending   = errors.New("a challenge is already pending for this player")
	ErrNoPendingForUser = errors.New("no pending challenge for target user")
	ErrExpired          = errors.New("challenge expired")
)

const DefaultTTL = 30 * time.Second

// Manager holds pending challenges in memory. A player takes part in at most
// one pending challenge at a time, either side.
type Manager struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	byID    map[string]*Challenge
	pending map[string]string // user id -> pending challenge id
}

func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		ttl:     ttl,
		now:     time.Now,
		byID:    make(map[string]*Challenge),
		pending: make(map[string]string),
	}
}

func (m *Manager) CreateChallenge(challengerID, targetID string) (*Challenge, error) {
	if challengerID == "" || targetID == "" {
		return nil, ErrInvalidArgs
	}
	if challengerID == targetID {
		return nil, ErrSelfChallenge
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()

	if _, busy := m.pending[challengerID]; busy {
		return nil, ErrAlreadyPending
	}
	if _, busy := m.pending[targetID]; busy {
		return nil, ErrAlreadyPending
	}
	now := m.now()
	ch := &Challenge{
		ID:           uuid.NewString(),
		ChallengerID: challengerID,
		TargetID:     targetID,
		CreatedAt:    now,
		ExpiresAt:    now.Add(m.ttl),
		Status:       StatusPending,
	}
	m.byID[ch.ID] = ch
	m.pending[challengerID] = ch.ID
	m.pending[targetID] = ch.ID
	cp := *ch
	return &cp, nil
}

// Accept resolves the pending challenge addressed to targetID. An empty
// challengeID picks whatever is pending for the target.
func (m *Manager) Accept(targetID, challengeID string) (*Challenge, error) {
	return m.resolve(targetID, challengeID, StatusAccepted)
}

func (m *Manager) Decline(targetID, challengeID string) (*Challenge, error) {
	return m.resolve(targetID, challengeID, StatusDeclined)
}

func (m *Manager) resolve(targetID, challengeID string, status Status) (*Challenge, error) {
	if targetID == "" {
		return nil, ErrInvalidArgs
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.pending[targetID]
	if challengeID != "" && challengeID != id {
		if ch, ok := m.byID[challengeID]; ok && ch.Status == StatusExpired && ch.TargetID == targetID {
			return nil, ErrExpired
		}
		return nil, ErrNoPendingForUser
	}
	ch, ok := m.byID[id]
	if !ok || ch.TargetID != targetID || ch.Status != StatusPending {
		return nil, ErrNoPendingForUser
	}
	if !m.now().Before(ch.ExpiresAt) {
		m.finishLocked(ch, StatusExpired)
		return nil, ErrExpired
	}
	m.finishLocked(ch, status)
	cp := *ch
	return &cp, nil
}

// DropUser cancels every pending challenge involving userID and returns them.
func (m *Manager) DropUser(userID string) []Challenge {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Challenge
	if id, ok := m.pending[userID]; ok {
		if ch := m.byID[id]; ch != nil && ch.involves(userID) {
			m.finishLocked(ch, StatusCancelled)
			out = append(out, *ch)
		}
	}
	return out
}

// Pending returns the challenge userID takes part in, if any.
func (m *Manager) Pending(userID string) (*Challenge, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	ch, ok := m.byID[m.pending[userID]]
	if !ok {
		return nil, false
	}
	cp := *ch
	return &cp, true
}

// Expire resolves every challenge past its deadline and returns them.
func (m *Manager) Expire() []Challenge {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked()
}

func (m *Manager) sweepLocked() []Challenge {
	now := m.now()
	var out []Challenge
	for _, ch := range m.byID {
		if ch.Status == StatusPending && !now.Before(ch.ExpiresAt) {
			m.finishLocked(ch, StatusExpired)
			out = append(out, *ch)
		}
	}
	// resolved challenges are kept for one more ttl so late answers get ErrExpired
	for id, ch := range m.byID {
		if ch.Status != StatusPending && now.Sub(ch.ExpiresAt) > m.ttl {
			delete(m.byID, id)
		}
	}
	return out
}

func (m *Manager) finishLocked(ch *Challenge, status Status) {
	ch.Status = status
	for _, u := range []string{ch.ChallengerID, ch.TargetID} {
		if m.pending[u] == ch.ID {
			delete(m.pending, u)
		}
	}
}
