package shootclient

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/park285/shootout-server/pkg/wire"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateFailed       State = "failed"
)

var ErrNotConnected = errors.New("not connected")

// Event is an inbound envelope. Data is left raw for the caller to decode.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type EventCallback func(ev *Event)

type StateCallback func(state State)

type callbackEntry struct {
	id       int
	callback EventCallback
}

type stateCallbackEntry struct {
	id       int
	callback StateCallback
}

// Player is a reconnecting socket that identifies itself with hello after
// every dial.
type Player struct {
	wsURL string
	hello wire.HelloRequest

	connM sync.Mutex
	conn  *websocket.Conn

	state  State
	stateM sync.RWMutex

	eventCbs []callbackEntry
	stateCbs []stateCallbackEntry
	nextCbID int
	cbM      sync.RWMutex

	maxReconnectAttempts int
	pingInterval         time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

func NewPlayer(wsURL string, hello wire.HelloRequest, maxReconnectAttempts int) *Player {
	ctx, cancel := context.WithCancel(context.Background())
	return &Player{
		wsURL:                wsURL,
		hello:                hello,
		state:                StateDisconnected,
		maxReconnectAttempts: maxReconnectAttempts,
		pingInterval:         30 * time.Second,
		stopCh:               make(chan struct{}),
		rootCtx:              ctx,
		rootCancel:           cancel,
	}
}

func (p *Player) Connect(ctx context.Context) error {
	switch p.State() {
	case StateConnected, StateConnecting:
		return nil
	}
	p.setState(StateConnecting)
	if err := p.dial(ctx); err != nil {
		p.setState(StateFailed)
		p.scheduleReconnect()
		return err
	}
	return nil
}

// dial opens a socket, sends hello and starts the read and ping loops.
func (p *Player) dial(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, p.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		return err
	}
	if err := wsjson.Write(dialCtx, conn, envelope(wire.RequestHello, p.hello)); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "hello failed")
		return err
	}

	p.connM.Lock()
	p.conn = conn
	p.connM.Unlock()
	p.setState(StateConnected)

	p.wg.Add(2)
	go p.listen(conn)
	go p.pingLoop(conn)
	return nil
}

// Send writes one request. data may be nil.
func (p *Player) Send(ctx context.Context, typ string, data any) error {
	p.connM.Lock()
	conn := p.conn
	p.connM.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	return wsjson.Write(ctx, conn, envelope(typ, data))
}

func (p *Player) Shot(ctx context.Context, direction string) error {
	return p.Send(ctx, wire.RequestShot, wire.DirectionRequest{Direction: direction})
}

func (p *Player) Save(ctx context.Context, direction string) error {
	return p.Send(ctx, wire.RequestSave, wire.DirectionRequest{Direction: direction})
}

func (p *Player) Challenge(ctx context.Context, targetID string) error {
	return p.Send(ctx, wire.RequestChallenge, wire.ChallengeRequest{TargetID: targetID})
}

func (p *Player) Accept(ctx context.Context, challengeID string) error {
	return p.Send(ctx, wire.RequestChallengeAccept, wire.ChallengeAnswerRequest{ChallengeID: challengeID})
}

func (p *Player) RematchVote(ctx context.Context, accept bool) error {
	return p.Send(ctx, wire.RequestRematchVote, wire.RematchVoteRequest{Accept: accept})
}

func envelope(typ string, data any) map[string]any {
	msg := map[string]any{"type": typ}
	if data != nil {
		msg["data"] = data
	}
	return msg
}

func (p *Player) listen(conn *websocket.Conn) {
	defer p.wg.Done()
	for {
		var ev Event
		if err := wsjson.Read(p.rootCtx, conn, &ev); err != nil {
			if p.isStopping() {
				return
			}
			p.dropConn(conn, websocket.StatusGoingAway, "reconnect")
			return
		}

		p.cbM.RLock()
		callbacks := make([]callbackEntry, len(p.eventCbs))
		copy(callbacks, p.eventCbs)
		p.cbM.RUnlock()
		for _, entry := range callbacks {
			entry.callback(&ev)
		}
	}
}

func (p *Player) pingLoop(conn *websocket.Conn) {
	defer p.wg.Done()
	t := time.NewTicker(p.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-p.stopCh:
			return
		case <-p.rootCtx.Done():
			return
		case <-t.C:
			if !p.current(conn) {
				return
			}
			ctx, cancel := context.WithTimeout(p.rootCtx, 3*time.Second)
			err := conn.Ping(ctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				p.dropConn(conn, websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}

func (p *Player) current(conn *websocket.Conn) bool {
	p.connM.Lock()
	defer p.connM.Unlock()
	return p.conn == conn
}

// dropConn closes conn and reconnects, once per lost connection.
func (p *Player) dropConn(conn *websocket.Conn, code websocket.StatusCode, reason string) {
	p.connM.Lock()
	if p.conn != conn {
		p.connM.Unlock()
		return
	}
	p.conn = nil
	p.connM.Unlock()
	_ = conn.Close(code, reason)
	p.setState(StateDisconnected)
	p.scheduleReconnect()
}

func (p *Player) scheduleReconnect() {
	if p.maxReconnectAttempts <= 0 || p.isStopping() {
		return
	}
	p.setState(StateReconnecting)

	go func() {
		for attempt := 1; attempt <= p.maxReconnectAttempts; attempt++ {
			select {
			case <-p.stopCh:
				return
			case <-time.After(backoffDuration(attempt)):
			}
			if err := p.dial(p.rootCtx); err == nil {
				return
			}
		}
		p.setState(StateFailed)
	}()
}

func (p *Player) OnEvent(cb EventCallback) int {
	p.cbM.Lock()
	defer p.cbM.Unlock()
	p.nextCbID++
	p.eventCbs = append(p.eventCbs, callbackEntry{id: p.nextCbID, callback: cb})
	return p.nextCbID
}

func (p *Player) RemoveEventCallback(id int) {
	p.cbM.Lock()
	defer p.cbM.Unlock()
	for i, cb := range p.eventCbs {
		if cb.id == id {
			p.eventCbs = append(p.eventCbs[:i], p.eventCbs[i+1:]...)
			break
		}
	}
}

func (p *Player) OnStateChange(cb StateCallback) int {
	p.cbM.Lock()
	defer p.cbM.Unlock()
	p.nextCbID++
	p.stateCbs = append(p.stateCbs, stateCallbackEntry{id: p.nextCbID, callback: cb})
	return p.nextCbID
}

func (p *Player) State() State {
	p.stateM.RLock()
	defer p.stateM.RUnlock()
	return p.state
}

func (p *Player) setState(state State) {
	p.stateM.Lock()
	p.state = state
	p.stateM.Unlock()

	p.cbM.RLock()
	callbacks := make([]stateCallbackEntry, len(p.stateCbs))
	copy(callbacks, p.stateCbs)
	p.cbM.RUnlock()
	for _, entry := range callbacks {
		entry.callback(state)
	}
}

func (p *Player) Close(ctx context.Context) error {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.connM.Lock()
	conn := p.conn
	p.conn = nil
	p.connM.Unlock()
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "close")
	}
	p.rootCancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (p *Player) isStopping() bool {
	select {
	case <-p.stopCh:
		return true
	default:
		return false
	}
}
