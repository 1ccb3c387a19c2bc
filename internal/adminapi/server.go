package adminapi

import (
	"context"
	"encoding/json"
	"net"
	"strings"
	"time"

	"github.com/park285/shootout-server/internal/domain"
	"github.com/park285/shootout-server/internal/shootout"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const queryTimeout = 5 * time.Second

// Records is the durable read side.
type Records interface {
	Player(ctx context.Context, id string) (*domain.Player, error)
	Match(ctx context.Context, id string) (*domain.MatchRecord, error)
	MatchKicks(ctx context.Context, matchID string) ([]domain.KickRecord, error)
	Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

// Live serves snapshots published by running sessions.
type Live interface {
	ActiveMatchByUser(ctx context.Context, userID string) (*shootout.Snapshot, error)
	LiveSessions(ctx context.Context) ([]shootout.Snapshot, error)
}

// Sessions is the in-process view used when no Live store is configured.
type Sessions interface {
	SessionFor(playerID string) *shootout.Session
	Sessions() []*shootout.Session
}

// Check is one named health probe.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

type Options struct {
	Records  Records
	Live     Live
	Sessions Sessions
	Checks   []Check
	Logger   *zap.Logger
}

// Server is the read-only HTTP API.
type Server struct {
	opts   Options
	logger *zap.Logger
	srv    *fasthttp.Server
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{opts: opts, logger: logger}
	s.srv = &fasthttp.Server{
		Handler:      s.Handle,
		Name:         "shootout-admin",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) ListenAndServe(addr string) error { return s.srv.ListenAndServe(addr) }

func (s *Server) Serve(ln net.Listener) error { return s.srv.Serve(ln) }

func (s *Server) Shutdown(ctx context.Context) error { return s.srv.ShutdownWithContext(ctx) }

// Handle routes one request.
func (s *Server) Handle(c *fasthttp.RequestCtx) {
	if !c.IsGet() {
		s.fail(c, fasthttp.StatusMethodNotAllowed, "method not allowed")
		return
	}
	path := strings.Trim(string(c.Path()), "/")
	parts := strings.Split(path, "/")

	switch {
	case path == "healthz":
		s.health(c)
	case path == "leaderboard":
		s.leaderboard(c)
	case path == "matches/live":
		s.liveMatches(c)
	case len(parts) == 2 && parts[0] == "matches":
		s.match(c, parts[1])
	case len(parts) == 3 && parts[0] == "matches" && parts[2] == "kicks":
		s.kicks(c, parts[1])
	case len(parts) == 2 && parts[0] == "players":
		s.player(c, parts[1])
	case len(parts) == 3 && parts[0] == "players" && parts[2] == "match":
		s.playerMatch(c, parts[1])
	default:
		s.fail(c, fasthttp.StatusNotFound, "not found")
	}
}

func (s *Server) health(c *fasthttp.RequestCtx) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	checks := make(map[string]string, len(s.opts.Checks))
	status := fasthttp.StatusOK
	for _, chk := range s.opts.Checks {
		if err := chk.Ping(ctx); err != nil {
			checks[chk.Name] = err.Error()
			status = fasthttp.StatusServiceUnavailable
			continue
		}
		checks[chk.Name] = "ok"
	}
	state := "ok"
	if status != fasthttp.StatusOK {
		state = "degraded"
	}
	s.json(c, status, map[string]any{"status": state, "checks": checks})
}

func (s *Server) leaderboard(c *fasthttp.RequestCtx) {
	limit, _ := c.QueryArgs().GetUint("limit")
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	rows, err := s.opts.Records.Leaderboard(ctx, limit)
	if err != nil {
		s.internal(c, "leaderboard", err)
		return
	}
	s.json(c, fasthttp.StatusOK, map[string]any{"entries": rows})
}

func (s *Server) match(c *fasthttp.RequestCtx, id string) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	m, err := s.opts.Records.Match(ctx, id)
	if err != nil {
		s.internal(c, "match", err)
		return
	}
	if m == nil {
		s.fail(c, fasthttp.StatusNotFound, "match not found")
		return
	}
	s.json(c, fasthttp.StatusOK, m)
}

func (s *Server) kicks(c *fasthttp.RequestCtx, matchID string) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	m, err := s.opts.Records.Match(ctx, matchID)
	if err != nil {
		s.internal(c, "match", err)
		return
	}
	if m == nil {
		s.fail(c, fasthttp.StatusNotFound, "match not found")
		return
	}
	kicks, err := s.opts.Records.MatchKicks(ctx, matchID)
	if err != nil {
		s.internal(c, "match_kicks", err)
		return
	}
	s.json(c, fasthttp.StatusOK, map[string]any{"match": m, "kicks": kicks})
}

func (s *Server) player(c *fasthttp.RequestCtx, id string) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	p, err := s.opts.Records.Player(ctx, id)
	if err != nil {
		s.internal(c, "player", err)
		return
	}
	if p == nil {
		s.fail(c, fasthttp.StatusNotFound, "player not found")
		return
	}
	s.json(c, fasthttp.StatusOK, p)
}

// playerMatch prefers the published snapshot and falls back to the
// in-process session.
func (s *Server) playerMatch(c *fasthttp.RequestCtx, userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	if s.opts.Live != nil {
		snap, err := s.opts.Live.ActiveMatchByUser(ctx, userID)
		if err != nil {
			s.logger.Warn("admin_live_lookup_error", zap.String("user_id", userID), zap.Error(err))
		} else if snap != nil {
			s.json(c, fasthttp.StatusOK, snap)
			return
		}
	}
	if s.opts.Sessions != nil {
		if sess := s.opts.Sessions.SessionFor(userID); sess != nil {
			s.json(c, fasthttp.StatusOK, sess.Snapshot())
			return
		}
	}
	s.fail(c, fasthttp.StatusNotFound, "no active match")
}

func (s *Server) liveMatches(c *fasthttp.RequestCtx) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	if s.opts.Live != nil {
		snaps, err := s.opts.Live.LiveSessions(ctx)
		if err == nil {
			s.json(c, fasthttp.StatusOK, map[string]any{"matches": snaps})
			return
		}
		s.logger.Warn("admin_live_list_error", zap.Error(err))
	}
	snaps := []shootout.Snapshot{}
	if s.opts.Sessions != nil {
		for _, sess := range s.opts.Sessions.Sessions() {
			snaps = append(snaps, sess.Snapshot())
		}
	}
	s.json(c, fasthttp.StatusOK, map[string]any{"matches": snaps})
}

func (s *Server) json(c *fasthttp.RequestCtx, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.internal(c, "encode", err)
		return
	}
	c.SetStatusCode(status)
	c.SetContentType("application/json")
	c.SetBody(b)
}

func (s *Server) fail(c *fasthttp.RequestCtx, status int, msg string) {
	s.json(c, status, map[string]string{"error": msg})
}

func (s *Server) internal(c *fasthttp.RequestCtx, op string, err error) {
	s.logger.Error("admin_query_error", zap.String("op", op), zap.String("path", string(c.Path())), zap.Error(err))
	s.fail(c, fasthttp.StatusInternalServerError, "internal error")
}
