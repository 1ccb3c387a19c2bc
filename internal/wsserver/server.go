package wsserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/park285/shootout-server/internal/lobby"
	"github.com/park285/shootout-server/internal/shootout"
	"github.com/park285/shootout-server/internal/storage"
	"github.com/park285/shootout-server/pkg/wire"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

var (
	errHelloRequired    = errors.New("hello required")
	errAlreadyConnected = errors.New("user already connected")
)

type Config struct {
	HelloTimeout   time.Duration
	PingInterval   time.Duration
	ChallengeSweep time.Duration
	OriginPatterns []string
}

func (c Config) withDefaults() Config {
	if c.HelloTimeout <= 0 {
		c.HelloTimeout = 10 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.ChallengeSweep <= 0 {
		c.ChallengeSweep = 5 * time.Second
	}
	return c
}

// Ticker runs a recurring background job.
type Ticker interface {
	Every(d time.Duration, name string, fn func()) (shootout.Timer, error)
}

type Deps struct {
	Hub      *Hub
	Registry *shootout.Registry
	Lobby    *lobby.Manager
	Store    storage.Store
	Texts    shootout.Texts
	Logger   *zap.Logger
}

// Server accepts player sockets and routes their requests to the lobby and
// to match sessions.
type Server struct {
	cfg      Config
	hub      *Hub
	registry *shootout.Registry
	lobby    *lobby.Manager
	store    storage.Store
	texts    shootout.Texts
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	sweep  shootout.Timer
}

func New(cfg Config, d Deps) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	hub := d.Hub
	if hub == nil {
		hub = NewHub(logger)
	}
	return &Server{
		cfg:      cfg.withDefaults(),
		hub:      hub,
		registry: d.Registry,
		lobby:    d.Lobby,
		store:    d.Store,
		texts:    d.Texts,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *Server) Hub() *Hub { return s.hub }

// StartSweeper expires stale challenges on t.
func (s *Server) StartSweeper(t Ticker) error {
	tm, err := t.Every(s.cfg.ChallengeSweep, "lobby_sweep", s.expireChallenges)
	if err != nil {
		return err
	}
	s.sweep = tm
	return nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		OriginPatterns:  s.cfg.OriginPatterns,
	})
	if err != nil {
		s.logger.Warn("ws_accept_error", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	s.wg.Add(1)
	defer s.wg.Done()
	s.serve(newConn(ws))
}

func (s *Server) serve(c *Conn) {
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	if err := s.handshake(ctx, c); err != nil {
		s.logger.Info("ws_handshake_failed", zap.String("conn_id", c.connID), zap.Error(err))
		c.close(websocket.StatusPolicyViolation, err.Error())
		return
	}
	defer s.cleanup(c)
	go c.pingLoop(ctx, s.cfg.PingInterval)

	for {
		var req wire.Request
		if err := wsjson.Read(ctx, c.ws, &req); err != nil {
			s.logger.Debug("ws_read_end", zap.String("user_id", c.userID), zap.Error(err))
			return
		}
		s.dispatch(ctx, c, req)
	}
}

func (s *Server) handshake(ctx context.Context, c *Conn) error {
	hctx, cancel := context.WithTimeout(ctx, s.cfg.HelloTimeout)
	defer cancel()

	var req wire.Request
	if err := wsjson.Read(hctx, c.ws, &req); err != nil {
		return err
	}
	var hello wire.HelloRequest
	if req.Kind() != wire.RequestHello || req.Decode(&hello) != nil || strings.TrimSpace(hello.UserID) == "" {
		s.reply(ctx, c, "hello_required", "error.hello_required", nil)
		return errHelloRequired
	}
	c.userID = strings.TrimSpace(hello.UserID)
	c.name = strings.TrimSpace(hello.Name)
	if c.name == "" {
		c.name = c.userID
	}
	if !s.hub.add(c) {
		s.reply(ctx, c, "already_connected", "error.already_connected", nil)
		return errAlreadyConnected
	}

	if err := s.store.UpsertPlayer(ctx, c.userID, c.name); err != nil {
		s.logger.Error("upsert_player_error", zap.String("user_id", c.userID), zap.Error(err))
	}
	s.setPresence(ctx, c, shootout.PresenceOnline)

	_ = c.Send(ctx, wire.Event{Type: wire.EventWelcome, Data: wire.WelcomePayload{
		User: c.user(shootout.PresenceOnline),
		Text: s.texts.Text("lobby.welcome", map[string]any{"Name": c.name}),
	}})
	_ = c.Send(ctx, s.onlineEvent())
	s.logger.Info("ws_hello", zap.String("user_id", c.userID), zap.String("conn_id", c.connID), zap.Int("online", s.hub.Count()))
	return nil
}

// cleanup runs once the read loop ends. A live match is forfeited.
func (s *Server) cleanup(c *Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.hub.remove(c)
	for _, ch := range s.lobby.DropUser(c.userID) {
		other := ch.ChallengerID
		if other == c.userID {
			other = ch.TargetID
		}
		s.notifyDeclined(ctx, other, ch, "lobby.challenge_declined", c.name)
	}

	left := false
	if sess := s.registry.SessionFor(c.userID); sess != nil {
		left = sess.HandleDisconnect(ctx, c) == nil
	}
	if !left {
		s.setPresence(ctx, c, shootout.PresenceOffline)
	}
	c.close(websocket.StatusNormalClosure, "")
	s.logger.Info("ws_disconnect", zap.String("user_id", c.userID), zap.Bool("forfeit", left))
}

func (s *Server) setPresence(ctx context.Context, c *Conn, p shootout.Presence) {
	if err := s.store.SetPresence(ctx, c.userID, p); err != nil {
		s.logger.Error("set_presence_error", zap.String("user_id", c.userID), zap.Error(err))
	}
	s.hub.Broadcast(ctx, wire.Event{Type: wire.EventStatusUpdate, Data: wire.TextPayload{
		Text: s.texts.Text("status."+string(p), map[string]any{"Name": c.name}),
	}})
}

func (s *Server) onlineEvent() wire.Event {
	return wire.Event{Type: wire.EventOnlineUsers, Data: wire.OnlineUsersPayload{Users: s.hub.Online(s.registry.Busy)}}
}

func (s *Server) reply(ctx context.Context, c *Conn, code, key string, data map[string]any) {
	if err := c.sendError(ctx, wire.ProtocolError{Code: code, Message: s.texts.Text(key, data)}); err != nil {
		s.logger.Debug("ws_reply_error", zap.String("user_id", c.userID), zap.String("code", code), zap.Error(err))
	}
}

// Shutdown closes every socket and waits for their handlers to return.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.sweep != nil {
		s.sweep.Stop()
	}
	s.cancel()
	s.hub.closeAll("server shutdown")
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
