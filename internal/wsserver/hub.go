package wsserver

import (
	"context"
	"sort"
	"sync"

	"github.com/park285/shootout-server/internal/shootout"
	"github.com/park285/shootout-server/pkg/wire"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// Hub is the set of connected users.
type Hub struct {
	logger *zap.Logger

	mu    sync.RWMutex
	conns map[string]*Conn // user id -> connection
}

var _ shootout.Broadcaster = (*Hub)(nil)

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{logger: logger, conns: make(map[string]*Conn)}
}

// add registers c under its user id. It fails if the user is already connected.
func (h *Hub) add(c *Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c.userID]; ok {
		return false
	}
	h.conns[c.userID] = c
	return true
}

func (h *Hub) remove(c *Conn) {
	h.mu.Lock()
	if cur, ok := h.conns[c.userID]; ok && cur == c {
		delete(h.conns, c.userID)
	}
	h.mu.Unlock()
}

func (h *Hub) Get(userID string) *Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.conns[userID]
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) snapshot() []*Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		out = append(out, c)
	}
	return out
}

// Broadcast sends ev to every connected user. Failures are logged; the
// owning read loop notices the dead socket on its own.
func (h *Hub) Broadcast(ctx context.Context, ev wire.Event) {
	for _, c := range h.snapshot() {
		if err := c.Send(ctx, ev); err != nil {
			h.logger.Debug("broadcast_send_error", zap.String("user_id", c.userID), zap.String("event", ev.Type), zap.Error(err))
		}
	}
}

// Online lists connected users sorted by id; presence comes from busy.
func (h *Hub) Online(busy func(userID string) bool) []wire.UserPayload {
	conns := h.snapshot()
	out := make([]wire.UserPayload, 0, len(conns))
	for _, c := range conns {
		p := shootout.PresenceOnline
		if busy != nil && busy(c.userID) {
			p = shootout.PresenceInGame
		}
		out = append(out, c.user(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (h *Hub) closeAll(reason string) {
	for _, c := range h.snapshot() {
		c.close(websocket.StatusGoingAway, reason)
	}
}
