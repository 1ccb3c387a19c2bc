package wsserver

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/park285/shootout-server/internal/shootout"
	"github.com/park285/shootout-server/pkg/wire"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	writeTimeout = 5 * time.Second
	pingTimeout  = 3 * time.Second
)

var errConnClosed = errors.New("connection closed")

// Conn is one player's socket. It is the shootout.Peer the session talks to.
type Conn struct {
	connID string
	userID string
	name   string

	ws      *websocket.Conn
	writeMu sync.Mutex
	closed  atomic.Bool
}

var _ shootout.Peer = (*Conn)(nil)

func newConn(ws *websocket.Conn) *Conn {
	return &Conn{connID: uuid.NewString(), ws: ws}
}

func (c *Conn) ID() string   { return c.userID }
func (c *Conn) Name() string { return c.name }

func (c *Conn) user(presence shootout.Presence) wire.UserPayload {
	return wire.UserPayload{ID: c.userID, Name: c.name, Presence: string(presence)}
}

// Send writes ev as one JSON frame. Writes are serialized per connection.
func (c *Conn) Send(ctx context.Context, ev wire.Event) error {
	if c.closed.Load() {
		return errConnClosed
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, writeTimeout)
		defer cancel()
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wsjson.Write(ctx, c.ws, ev)
}

func (c *Conn) sendError(ctx context.Context, e wire.ProtocolError) error {
	return c.Send(ctx, wire.Event{Type: wire.EventError, Data: e.Payload()})
}

func (c *Conn) close(code websocket.StatusCode, reason string) {
	if c.closed.Swap(true) {
		return
	}
	_ = c.ws.Close(code, reason)
}

// pingLoop closes the socket after two failed pings in a row.
func (c *Conn) pingLoop(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, pingTimeout)
			err := c.ws.Ping(pctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				c.close(websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}
