package shootout

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/park285/shootout-server/internal/obslog"
	"github.com/park285/shootout-server/pkg/wire"
	"go.uber.org/zap"
)

var (
	ErrInvalidPeers   = errors.New("a match needs two distinct peers")
	ErrMissingDeps    = errors.New("gateway and scheduler are required")
	ErrSessionClosed  = errors.New("match session closed")
	ErrUnknownPeer    = errors.New("peer is not part of this match")
	ErrWrongPhase     = errors.New("action not allowed in current phase")
	ErrNotYourTurn    = errors.New("not your turn")
	ErrNoPendingShot  = errors.New("shot direction not set")
	ErrEmptyDirection = errors.New("direction required")
	ErrAlreadyVoted   = errors.New("rematch vote already recorded")
)

const (
	sideA = 0
	sideB = 1
)

// Options configures every session created from it.
type Options struct {
	Gateway     Gateway
	Scheduler   Scheduler
	Texts       Texts
	Observer    Observer
	Broadcaster Broadcaster
	Logger      *zap.Logger

	TurnTimeout        time.Duration
	FirstMoveDelay     time.Duration
	RematchPromptDelay time.Duration
	WinBonus           int

	// Coin decides whether player A opens as shooter.
	Coin func() bool
	// OnClose runs once when the session detaches both players.
	OnClose func(s *Session)
}

func (o Options) withDefaults() Options {
	if o.TurnTimeout <= 0 {
		o.TurnTimeout = 15 * time.Second
	}
	if o.FirstMoveDelay <= 0 {
		o.FirstMoveDelay = 500 * time.Millisecond
	}
	if o.RematchPromptDelay <= 0 {
		o.RematchPromptDelay = 3 * time.Second
	}
	if o.WinBonus < 0 {
		o.WinBonus = 0
	}
	if o.Coin == nil {
		o.Coin = fairCoin
	}
	if o.Logger == nil {
		o.Logger = obslog.L()
	}
	return o
}

func fairCoin() bool {
	n, err := rand.Int(rand.Reader, big.NewInt(2))
	if err != nil {
		return time.Now().UnixNano()%2 == 0
	}
	return n.Int64() == 0
}

type player struct {
	peer  Peer
	score int
	vote  Vote
}

// Session is one live match between two players. All exported methods are
// safe for concurrent use; they are serialized on the session's own lock.
type Session struct {
	id     string
	opts   Options
	logger *zap.Logger

	mu          sync.Mutex
	matchID     string
	players     [2]*player
	shooterIsA  bool
	round       int
	step        Phase
	suddenDeath bool
	secondHalf  bool
	firstGoal   bool
	secondGoal  bool
	pendingShot string
	prompted    bool
	started     bool
	rematching  bool
	closed      bool
	seq         uint64
	gen         uint64
	kicks       int
	winnerID    string
	endReason   EndReason
	version     uint64
	out         batch

	// Batches are delivered in ticket order. A ticket is issued under mu and
	// waited on after mu is released; orderMu is never held with mu.
	nextTicket   uint64
	orderMu      sync.Mutex
	orderCond    *sync.Cond
	servedTicket uint64

	// timerMu guards the armed timer handles only. Never held while calling out.
	timerMu sync.Mutex
	timers  [2]Timer
}

// NewSession pairs a and b and obtains a match id from the gateway. A
// gateway failure is logged and the match runs under a local id.
func NewSession(ctx context.Context, opts Options, a, b Peer) (*Session, error) {
	if a == nil || b == nil || strings.TrimSpace(a.ID()) == "" || strings.TrimSpace(b.ID()) == "" || a.ID() == b.ID() {
		return nil, ErrInvalidPeers
	}
	if opts.Gateway == nil || opts.Scheduler == nil {
		return nil, ErrMissingDeps
	}
	opts = opts.withDefaults()
	s := &Session{
		id:      uuid.NewString(),
		opts:    opts,
		players: [2]*player{{peer: a}, {peer: b}},
		round:   1,
		step:    PhaseAwaitingShot,
	}
	s.orderCond = sync.NewCond(&s.orderMu)
	s.logger = opts.Logger.With(zap.String("session_id", s.id))
	s.matchID = s.createMatch(ctx, a.ID(), b.ID())
	s.shooterIsA = opts.Coin()
	return s, nil
}

func (s *Session) createMatch(ctx context.Context, aID, bID string) string {
	id, err := s.opts.Gateway.CreateMatch(ctx, aID, bID)
	if err != nil || strings.TrimSpace(id) == "" {
		id = "local-" + uuid.NewString()
		s.logger.Error("create_match_error", zap.String("fallback_match_id", id), zap.Error(err))
	}
	return id
}

// ID is the session identifier. It survives rematches; MatchID does not.
func (s *Session) ID() string { return s.id }

func (s *Session) MatchID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matchID
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Players returns the peers currently in slots A and B.
func (s *Session) Players() (Peer, Peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.players[sideA].peer, s.players[sideB].peer
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Start announces the match and requests the first shot after the
// configured delay.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.startLocked()
	s.unlockAndFlush(ctx)
	return nil
}

// SubmitShot records the shooter's direction and hands the turn to the goalkeeper.
func (s *Session) SubmitShot(ctx context.Context, actor Peer, direction string) error {
	s.mu.Lock()
	err := s.submitShotLocked(actor, direction)
	s.unlockAndFlush(ctx)
	return err
}

// SubmitSave resolves the kick in flight.
func (s *Session) SubmitSave(ctx context.Context, actor Peer, direction string) error {
	s.mu.Lock()
	err := s.submitSaveLocked(actor, direction)
	s.unlockAndFlush(ctx)
	return err
}

// SubmitRematchVote records actor's answer to the play-again prompt.
func (s *Session) SubmitRematchVote(ctx context.Context, actor Peer, accept bool) error {
	s.mu.Lock()
	err := s.rematchVoteLocked(actor, accept)
	s.unlockAndFlush(ctx)
	return err
}

// HandleTimeout applies the deadline for role in the current sub-turn. It
// reports false when the action already arrived.
func (s *Session) HandleTimeout(ctx context.Context, role Role) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	ok := s.timeoutLocked(role)
	s.unlockAndFlush(ctx)
	return ok
}

// HandleDisconnect ends the match in favour of the other player and marks
// actor offline.
func (s *Session) HandleDisconnect(ctx context.Context, actor Peer) error {
	return s.leave(ctx, actor, PresenceOffline)
}

// Quit ends the match in favour of the other player; actor stays online.
func (s *Session) Quit(ctx context.Context, actor Peer) error {
	return s.leave(ctx, actor, PresenceOnline)
}

func (s *Session) startLocked() {
	s.started = true
	s.gen++
	gen := s.gen
	s.step = PhaseAwaitingShot
	s.prompted = false
	for _, p := range s.players {
		p.vote = VotePending
		s.presenceLocked(p.peer, PresenceInGame)
	}
	shooter, keeper := s.players[s.shooterSide()], s.players[s.keeperSide()]
	s.send(shooter.peer, wire.Event{Type: wire.EventMatchStart, Data: wire.MatchStartPayload{
		MatchID:      s.matchID,
		Role:         RoleShooter.String(),
		Text:         s.text("match.start_shooter", nil),
		OpponentID:   keeper.peer.ID(),
		OpponentName: keeper.peer.Name(),
	}})
	s.send(keeper.peer, wire.Event{Type: wire.EventMatchStart, Data: wire.MatchStartPayload{
		MatchID:      s.matchID,
		Role:         RoleGoalkeeper.String(),
		Text:         s.text("match.start_keeper", nil),
		OpponentID:   shooter.peer.ID(),
		OpponentName: shooter.peer.Name(),
	}})
	s.schedule("first_move", s.opts.FirstMoveDelay, func() { s.firstMoveDue(gen) })
	s.logger.Info("match_start",
		zap.String("match_id", s.matchID),
		zap.String("player_a", s.players[sideA].peer.ID()),
		zap.String("player_b", s.players[sideB].peer.ID()),
		zap.String("shooter", shooter.peer.ID()),
	)
}

func (s *Session) firstMoveDue(gen uint64) {
	s.mu.Lock()
	if s.closed || s.gen != gen || s.prompted || s.step != PhaseAwaitingShot {
		s.mu.Unlock()
		return
	}
	s.requestNextMoveLocked()
	s.unlockAndFlush(context.Background())
}

func (s *Session) requestNextMoveLocked() {
	s.prompted = true
	s.pendingShot = ""
	s.step = PhaseAwaitingShot
	s.seq++
	turn := wire.TurnPayload{Seconds: s.turnSeconds()}
	s.send(s.players[s.shooterSide()].peer, wire.Event{Type: wire.EventYourTurn, Data: turn})
	s.send(s.players[s.keeperSide()].peer, wire.Event{Type: wire.EventOpponentTurn, Data: turn})
	s.armTimer(RoleShooter, s.seq)
}

func (s *Session) submitShotLocked(actor Peer, direction string) error {
	side, err := s.checkActor(actor)
	if err != nil {
		return err
	}
	if s.step != PhaseAwaitingShot {
		return s.reject(ErrWrongPhase)
	}
	if side != s.shooterSide() {
		return s.reject(ErrNotYourTurn)
	}
	dir := strings.TrimSpace(direction)
	if dir == "" {
		return s.reject(ErrEmptyDirection)
	}
	s.applyShotLocked(dir)
	return nil
}

func (s *Session) applyShotLocked(dir string) {
	s.prompted = true
	s.pendingShot = dir
	s.cancelTimer(RoleShooter)
	s.step = PhaseAwaitingSave
	s.seq++
	turn := wire.TurnPayload{Seconds: s.turnSeconds()}
	s.send(s.players[s.keeperSide()].peer, wire.Event{Type: wire.EventGoalkeeperTurn, Data: turn})
	s.send(s.players[s.shooterSide()].peer, wire.Event{Type: wire.EventOpponentTurn, Data: turn})
	s.armTimer(RoleGoalkeeper, s.seq)
	s.logger.Debug("shot_received", zap.String("match_id", s.matchID), zap.Int("round", s.round))
}

func (s *Session) submitSaveLocked(actor Peer, direction string) error {
	side, err := s.checkActor(actor)
	if err != nil {
		return err
	}
	if s.step != PhaseAwaitingSave {
		return s.reject(ErrWrongPhase)
	}
	if side != s.keeperSide() {
		return s.reject(ErrNotYourTurn)
	}
	if s.pendingShot == "" {
		return s.reject(ErrNoPendingShot)
	}
	dir := strings.TrimSpace(direction)
	if dir == "" {
		return s.reject(ErrEmptyDirection)
	}
	s.applySaveLocked(dir)
	return nil
}

func (s *Session) applySaveLocked(save string) {
	s.cancelTimer(RoleGoalkeeper)
	shot := s.pendingShot
	s.pendingShot = ""
	shooterSide, keeperSide := s.shooterSide(), s.keeperSide()
	shooter, keeper := s.players[shooterSide], s.players[keeperSide]

	goal := !DirectionsMatch(shot, save)
	outcome := OutcomeSaved
	if goal {
		shooter.score++
		outcome = OutcomeGoal
	}
	s.kicks++

	result := wire.Event{Type: wire.EventKickResult, Data: wire.KickResultPayload{
		Outcome:       string(outcome),
		ShotDirection: shot,
		SaveDirection: save,
		ShooterID:     shooter.peer.ID(),
	}}
	s.send(shooter.peer, result)
	s.send(keeper.peer, result)

	kick := Kick{
		MatchID:       s.matchID,
		Round:         s.round,
		ShooterID:     shooter.peer.ID(),
		GoalkeeperID:  keeper.peer.ID(),
		ShotDirection: shot,
		SaveDirection: save,
		Outcome:       outcome,
	}
	gw := s.opts.Gateway
	s.do("record_kick", func(ctx context.Context) error { return gw.RecordKick(ctx, kick) })
	s.logger.Info("kick_resolved",
		zap.String("match_id", s.matchID),
		zap.Int("round", s.round),
		zap.String("shooter", shooter.peer.ID()),
		zap.String("outcome", string(outcome)),
		zap.Int("score_a", s.players[sideA].score),
		zap.Int("score_b", s.players[sideB].score),
		zap.Bool("sudden_death", s.suddenDeath),
	)
	s.sendScores()

	if !s.secondHalf {
		s.firstGoal = goal
		s.secondHalf = true
		s.swapRoles()
		s.requestNextMoveLocked()
		return
	}
	s.secondGoal = goal

	if s.suddenDeath {
		if s.firstGoal != s.secondGoal {
			// The current goalkeeper opened this round.
			winner := shooterSide
			if s.firstGoal {
				winner = keeperSide
			}
			s.concludeLocked(winner)
			return
		}
		s.advanceRoundLocked()
		return
	}

	s.step = PhaseRoundComplete
	s.round++
	s.secondHalf, s.firstGoal, s.secondGoal = false, false, false
	switch evaluateBoundary(s.round, s.players[sideA].score, s.players[sideB].score) {
	case verdictEnd:
		s.concludeLocked(s.leaderSide())
		return
	case verdictSuddenDeath:
		s.suddenDeath = true
		s.logger.Info("sudden_death", zap.String("match_id", s.matchID), zap.Int("round", s.round))
	}
	s.sendScores()
	s.swapRoles()
	s.requestNextMoveLocked()
}

func (s *Session) advanceRoundLocked() {
	s.step = PhaseRoundComplete
	s.round++
	s.secondHalf, s.firstGoal, s.secondGoal = false, false, false
	s.sendScores()
	s.swapRoles()
	s.requestNextMoveLocked()
}

func (s *Session) concludeLocked(winnerSide int) {
	s.cancelTimer(RoleShooter)
	s.cancelTimer(RoleGoalkeeper)
	s.step = PhaseConcluded
	s.gen++
	gen := s.gen
	s.endReason = ReasonNormal
	s.winnerID = ""

	gw := s.opts.Gateway
	matchID := s.matchID
	if winnerSide >= 0 {
		s.winnerID = s.players[winnerSide].peer.ID()
		winnerID, bonus := s.winnerID, s.opts.WinBonus
		if bonus > 0 {
			s.do("award_points", func(ctx context.Context) error { return gw.AwardPoints(ctx, winnerID, bonus) })
		}
	}
	winnerID := s.winnerID
	s.do("set_match_winner", func(ctx context.Context) error {
		return gw.SetMatchWinner(ctx, matchID, winnerID, ReasonNormal)
	})

	for side, p := range s.players {
		p.vote = VotePending
		res := "lose"
		if side == winnerSide {
			res = "win"
		}
		s.send(p.peer, wire.Event{Type: wire.EventMatchResult, Data: wire.ResultPayload{Result: res}})
	}
	s.schedule("rematch_prompt", s.opts.RematchPromptDelay, func() { s.rematchPromptDue(gen) })
	s.logger.Info("match_concluded",
		zap.String("match_id", matchID),
		zap.String("winner", winnerID),
		zap.Int("score_a", s.players[sideA].score),
		zap.Int("score_b", s.players[sideB].score),
		zap.Int("round", s.round),
		zap.Bool("sudden_death", s.suddenDeath),
	)
}

func (s *Session) rematchPromptDue(gen uint64) {
	s.mu.Lock()
	if s.closed || s.gen != gen || s.step != PhaseConcluded {
		s.mu.Unlock()
		return
	}
	s.step = PhaseRematchPending
	for _, p := range s.players {
		p.vote = VotePending
	}
	s.sendBoth(wire.Event{Type: wire.EventPlayAgainRequest, Data: wire.TextPayload{Text: s.text("match.play_again", nil)}})
	s.unlockAndFlush(context.Background())
}

func (s *Session) rematchVoteLocked(actor Peer, accept bool) error {
	side, err := s.checkActor(actor)
	if err != nil {
		return err
	}
	if s.step != PhaseRematchPending || s.rematching {
		return s.reject(ErrWrongPhase)
	}
	if s.players[side].vote != VotePending {
		return s.reject(ErrAlreadyVoted)
	}
	s.players[side].vote = VoteDeclined
	if accept {
		s.players[side].vote = VoteAccepted
	}
	va, vb := s.players[sideA].vote, s.players[sideB].vote
	s.logger.Info("rematch_vote", zap.String("player_id", actor.ID()), zap.Bool("accept", accept))
	if va == VotePending || vb == VotePending {
		return nil
	}
	if va == VoteAccepted && vb == VoteAccepted {
		s.rematching = true
		s.gen++
		gen := s.gen
		// A and B trade places for the rematch.
		nextA, nextB := s.players[sideB].peer.ID(), s.players[sideA].peer.ID()
		s.then(func(ctx context.Context) { s.beginRematch(ctx, gen, nextA, nextB) })
		return nil
	}
	s.closeLocked()
	for _, p := range s.players {
		s.presenceLocked(p.peer, PresenceOnline)
	}
	s.sendBoth(wire.Event{Type: wire.EventMatchEnd, Data: wire.TextPayload{Text: s.text("match.ended", nil)}})
	return nil
}

// beginRematch runs without the session lock so the gateway call does not
// block other operations on this match.
func (s *Session) beginRematch(ctx context.Context, gen uint64, nextA, nextB string) {
	matchID := s.createMatch(ctx, nextA, nextB)
	s.mu.Lock()
	if s.closed || s.gen != gen {
		s.mu.Unlock()
		s.logger.Warn("rematch_abandoned", zap.String("match_id", matchID))
		return
	}
	s.resetLocked(matchID)
	s.startLocked()
	s.unlockAndFlush(ctx)
}

func (s *Session) resetLocked(matchID string) {
	s.players[sideA], s.players[sideB] = s.players[sideB], s.players[sideA]
	for _, p := range s.players {
		p.score = 0
		p.vote = VotePending
	}
	// shooterIsA is left as is: after the swap it hands the opening shot to
	// the player who kept goal last.
	s.matchID = matchID
	s.round = 1
	s.suddenDeath = false
	s.secondHalf, s.firstGoal, s.secondGoal = false, false, false
	s.pendingShot = ""
	s.kicks = 0
	s.winnerID = ""
	s.endReason = ""
	s.rematching = false
}

func (s *Session) timeoutFired(role Role, seq uint64) {
	s.mu.Lock()
	if s.closed || seq != s.seq {
		s.mu.Unlock()
		return
	}
	s.timeoutLocked(role)
	s.unlockAndFlush(context.Background())
}

func (s *Session) timeoutLocked(role Role) bool {
	shooter, keeper := s.players[s.shooterSide()].peer, s.players[s.keeperSide()].peer
	data := map[string]any{"Direction": DefaultDirection}
	switch role {
	case RoleShooter:
		if s.step != PhaseAwaitingShot {
			return false
		}
		s.send(shooter, wire.Event{Type: wire.EventTimeout, Data: wire.TextPayload{Text: s.text("turn.timeout_self", data)}})
		s.send(keeper, wire.Event{Type: wire.EventOpponentTimeout, Data: wire.TextPayload{Text: s.text("turn.timeout_opponent", data)}})
		s.logger.Info("turn_timeout", zap.String("match_id", s.matchID), zap.String("role", role.String()), zap.String("player_id", shooter.ID()))
		s.applyShotLocked(DefaultDirection)
	case RoleGoalkeeper:
		if s.step != PhaseAwaitingSave || s.pendingShot == "" {
			return false
		}
		s.send(keeper, wire.Event{Type: wire.EventTimeout, Data: wire.TextPayload{Text: s.text("turn.timeout_self", data)}})
		s.send(shooter, wire.Event{Type: wire.EventOpponentTimeout, Data: wire.TextPayload{Text: s.text("turn.timeout_opponent", data)}})
		s.logger.Info("turn_timeout", zap.String("match_id", s.matchID), zap.String("role", role.String()), zap.String("player_id", keeper.ID()))
		s.applySaveLocked(DefaultDirection)
	default:
		return false
	}
	return true
}

func (s *Session) leave(ctx context.Context, actor Peer, status Presence) error {
	s.mu.Lock()
	side, err := s.checkActor(actor)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	leaver, stayer := s.players[side], s.players[1-side]

	// A leave forfeits in every phase, including a pending rematch vote.
	leaver.vote = VoteDeclined
	s.winnerID = stayer.peer.ID()
	s.endReason = ReasonPlayerQuit
	gw := s.opts.Gateway
	matchID, winnerID, bonus := s.matchID, s.winnerID, s.opts.WinBonus
	if bonus > 0 {
		s.do("award_points", func(ctx context.Context) error { return gw.AwardPoints(ctx, winnerID, bonus) })
	}
	s.do("set_match_winner", func(ctx context.Context) error {
		return gw.SetMatchWinner(ctx, matchID, winnerID, ReasonPlayerQuit)
	})
	s.logger.Info("match_forfeit",
		zap.String("match_id", matchID),
		zap.String("leaver", leaver.peer.ID()),
		zap.String("winner", winnerID),
		zap.String("phase", string(s.step)),
		zap.String("presence", string(status)),
	)

	s.closeLocked()
	s.presenceLocked(stayer.peer, PresenceOnline)
	s.presenceLocked(leaver.peer, status)
	s.send(stayer.peer, wire.Event{Type: wire.EventMatchEnd, Data: wire.TextPayload{Text: s.text("match.opponent_left", nil)}})
	s.send(leaver.peer, wire.Event{Type: wire.EventMatchEnd, Data: wire.TextPayload{Text: s.text("match.you_left", nil)}})
	s.unlockAndFlush(ctx)
	return nil
}

// closeLocked detaches both players. The session accepts no further input.
func (s *Session) closeLocked() {
	s.closed = true
	s.step = PhaseConcluded
	s.gen++
	s.cancelTimer(RoleShooter)
	s.cancelTimer(RoleGoalkeeper)
	if onClose := s.opts.OnClose; onClose != nil {
		s.then(func(context.Context) { onClose(s) })
	}
}

func (s *Session) presenceLocked(p Peer, status Presence) {
	gw := s.opts.Gateway
	id := p.ID()
	s.do("set_presence", func(ctx context.Context) error { return gw.SetPresence(ctx, id, status) })
	if bc := s.opts.Broadcaster; bc != nil {
		ev := wire.Event{Type: wire.EventStatusUpdate, Data: wire.TextPayload{
			Text: s.text("status."+string(status), map[string]any{"Name": p.Name()}),
		}}
		s.do("broadcast_status", func(ctx context.Context) error {
			bc.Broadcast(ctx, ev)
			return nil
		})
	}
}

func (s *Session) sendScores() {
	a, b := s.players[sideA], s.players[sideB]
	s.send(a.peer, wire.Event{Type: wire.EventUpdateScore, Data: wire.ScorePayload{Self: a.score, Opponent: b.score, Round: s.round}})
	s.send(b.peer, wire.Event{Type: wire.EventUpdateScore, Data: wire.ScorePayload{Self: b.score, Opponent: a.score, Round: s.round}})
}

func (s *Session) reject(err error) error {
	code, key := protocolCode(err)
	s.sendBoth(wire.Event{Type: wire.EventError, Data: wire.ErrorPayload{Code: code, Message: s.text(key, nil)}})
	s.logger.Debug("protocol_violation", zap.String("match_id", s.matchID), zap.String("code", code))
	return err
}

func protocolCode(err error) (string, string) {
	switch {
	case errors.Is(err, ErrWrongPhase):
		return "wrong_phase", "error.wrong_phase"
	case errors.Is(err, ErrNotYourTurn):
		return "not_your_turn", "error.not_your_turn"
	case errors.Is(err, ErrNoPendingShot):
		return "no_pending_shot", "error.no_pending_shot"
	case errors.Is(err, ErrEmptyDirection):
		return "empty_direction", "error.empty_direction"
	case errors.Is(err, ErrAlreadyVoted):
		return "already_voted", "error.already_voted"
	default:
		return "invalid_request", "error.invalid_request"
	}
}

func (s *Session) checkActor(actor Peer) (int, error) {
	if s.closed {
		return -1, ErrSessionClosed
	}
	if actor == nil {
		return -1, ErrUnknownPeer
	}
	for side, p := range s.players {
		if p.peer.ID() == actor.ID() {
			return side, nil
		}
	}
	return -1, ErrUnknownPeer
}

func (s *Session) shooterSide() int {
	if s.shooterIsA {
		return sideA
	}
	return sideB
}

func (s *Session) keeperSide() int { return 1 - s.shooterSide() }

func (s *Session) swapRoles() { s.shooterIsA = !s.shooterIsA }

func (s *Session) leaderSide() int {
	switch a, b := s.players[sideA].score, s.players[sideB].score; {
	case a > b:
		return sideA
	case b > a:
		return sideB
	default:
		return -1
	}
}

func (s *Session) turnSeconds() int { return int(s.opts.TurnTimeout / time.Second) }

func (s *Session) text(key string, data map[string]any) string {
	if s.opts.Texts == nil {
		return key
	}
	return s.opts.Texts.Text(key, data)
}

func (s *Session) phaseLocked() Phase {
	if s.suddenDeath && (s.step == PhaseAwaitingShot || s.step == PhaseAwaitingSave) {
		if s.secondHalf {
			return PhaseSuddenDeathSecond
		}
		return PhaseSuddenDeathFirst
	}
	return s.step
}

func (s *Session) snapshotLocked() Snapshot {
	a, b := s.players[sideA], s.players[sideB]
	shooter, keeper := s.players[s.shooterSide()], s.players[s.keeperSide()]
	return Snapshot{
		SessionID:   s.id,
		MatchID:     s.matchID,
		Version:     s.version,
		PlayerAID:   a.peer.ID(),
		PlayerAName: a.peer.Name(),
		PlayerBID:   b.peer.ID(),
		PlayerBName: b.peer.Name(),
		ScoreA:      a.score,
		ScoreB:      b.score,
		Round:       s.round,
		Phase:       s.phaseLocked(),
		Step:        s.step,
		ShooterID:   shooter.peer.ID(),
		KeeperID:    keeper.peer.ID(),
		SuddenDeath: s.suddenDeath,
		Kicks:       s.kicks,
		VoteA:       a.vote,
		VoteB:       b.vote,
		WinnerID:    s.winnerID,
		EndReason:   s.endReason,
		Closed:      s.closed,
		UpdatedAt:   time.Now(),
	}
}
