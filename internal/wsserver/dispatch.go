package wsserver

import (
	"context"
	"errors"
	"strings"

	"github.com/park285/shootout-server/internal/lobby"
	"github.com/park285/shootout-server/internal/shootout"
	"github.com/park285/shootout-server/pkg/wire"
	"go.uber.org/zap"
)

func (s *Server) dispatch(ctx context.Context, c *Conn, req wire.Request) {
	switch req.Kind() {
	case wire.RequestShot, wire.RequestSave:
		var d wire.DirectionRequest
		if err := req.Decode(&d); err != nil {
			s.reply(ctx, c, "invalid_request", "error.invalid_request", nil)
			return
		}
		sess := s.registry.SessionFor(c.userID)
		if sess == nil {
			s.reply(ctx, c, "not_in_match", "error.not_in_match", nil)
			return
		}
		var err error
		if req.Kind() == wire.RequestShot {
			err = sess.SubmitShot(ctx, c, d.Direction)
		} else {
			err = sess.SubmitSave(ctx, c, d.Direction)
		}
		s.afterSession(ctx, c, err)

	case wire.RequestRematchVote:
		var v wire.RematchVoteRequest
		if err := req.Decode(&v); err != nil {
			s.reply(ctx, c, "invalid_request", "error.invalid_request", nil)
			return
		}
		sess := s.registry.SessionFor(c.userID)
		if sess == nil {
			s.reply(ctx, c, "not_in_match", "error.not_in_match", nil)
			return
		}
		s.afterSession(ctx, c, sess.SubmitRematchVote(ctx, c, v.Accept))

	case wire.RequestQuit:
		sess := s.registry.SessionFor(c.userID)
		if sess == nil {
			s.reply(ctx, c, "not_in_match", "error.not_in_match", nil)
			return
		}
		s.afterSession(ctx, c, sess.Quit(ctx, c))

	case wire.RequestChallenge:
		s.challenge(ctx, c, req)
	case wire.RequestChallengeAccept:
		s.answerChallenge(ctx, c, req, true)
	case wire.RequestChallengeDecline:
		s.answerChallenge(ctx, c, req, false)
	case wire.RequestListOnline:
		_ = c.Send(ctx, s.onlineEvent())
	case wire.RequestHello:
		s.reply(ctx, c, "invalid_request", "error.invalid_request", nil)
	default:
		s.reply(ctx, c, "unknown_request", "error.unknown_request", nil)
	}
}

// afterSession reports errors the session could not report itself. Rule
// violations were already sent to both players.
func (s *Server) afterSession(ctx context.Context, c *Conn, err error) {
	if errors.Is(err, shootout.ErrSessionClosed) || errors.Is(err, shootout.ErrUnknownPeer) {
		s.reply(ctx, c, "not_in_match", "error.not_in_match", nil)
	}
}

func (s *Server) challenge(ctx context.Context, c *Conn, req wire.Request) {
	var r wire.ChallengeRequest
	if err := req.Decode(&r); err != nil || strings.TrimSpace(r.TargetID) == "" {
		s.reply(ctx, c, "invalid_request", "error.invalid_request", nil)
		return
	}
	targetID := strings.TrimSpace(r.TargetID)
	if targetID == c.userID {
		s.reply(ctx, c, "challenge_self", "lobby.challenge_self", nil)
		return
	}
	target := s.hub.Get(targetID)
	if target == nil {
		s.reply(ctx, c, "target_offline", "lobby.target_offline", map[string]any{"Name": targetID})
		return
	}
	if s.registry.Busy(c.userID) || s.registry.Busy(targetID) {
		s.reply(ctx, c, "player_busy", "error.player_busy", nil)
		return
	}
	ch, err := s.lobby.CreateChallenge(c.userID, targetID)
	switch {
	case errors.Is(err, lobby.ErrAlreadyPending):
		s.reply(ctx, c, "player_busy", "error.player_busy", nil)
		return
	case err != nil:
		s.reply(ctx, c, "invalid_request", "error.invalid_request", nil)
		return
	}

	payload := wire.ChallengePayload{
		ChallengeID: ch.ID,
		From:        c.user(shootout.PresenceOnline),
		To:          target.user(shootout.PresenceOnline),
	}
	received := payload
	received.Text = s.texts.Text("lobby.challenge_received", map[string]any{"Name": c.name})
	if err := target.Send(ctx, wire.Event{Type: wire.EventChallengeReceived, Data: received}); err != nil {
		s.lobby.DropUser(targetID)
		s.reply(ctx, c, "target_offline", "lobby.target_offline", map[string]any{"Name": target.name})
		return
	}
	payload.Text = s.texts.Text("lobby.challenge_sent", map[string]any{"Name": target.name})
	_ = c.Send(ctx, wire.Event{Type: wire.EventChallengeSent, Data: payload})
	s.logger.Info("challenge_created", zap.String("challenge_id", ch.ID), zap.String("from", c.userID), zap.String("to", targetID))
}

func (s *Server) answerChallenge(ctx context.Context, c *Conn, req wire.Request, accept bool) {
	var r wire.ChallengeAnswerRequest
	if err := req.Decode(&r); err != nil {
		s.reply(ctx, c, "invalid_request", "error.invalid_request", nil)
		return
	}
	var (
		ch  *lobby.Challenge
		err error
	)
	if accept {
		ch, err = s.lobby.Accept(c.userID, strings.TrimSpace(r.ChallengeID))
	} else {
		ch, err = s.lobby.Decline(c.userID, strings.TrimSpace(r.ChallengeID))
	}
	switch {
	case errors.Is(err, lobby.ErrExpired):
		s.reply(ctx, c, "challenge_expired", "lobby.challenge_expired", nil)
		return
	case err != nil:
		s.reply(ctx, c, "challenge_unknown", "lobby.challenge_unknown", nil)
		return
	}

	if !accept {
		s.notifyDeclined(ctx, ch.ChallengerID, *ch, "lobby.challenge_declined", c.name)
		return
	}

	challenger := s.hub.Get(ch.ChallengerID)
	if challenger == nil {
		s.reply(ctx, c, "target_offline", "lobby.target_offline", map[string]any{"Name": ch.ChallengerID})
		return
	}
	// The challenger is player A.
	if _, err := s.registry.Create(ctx, challenger, c); err != nil {
		code, key := "invalid_request", "error.invalid_request"
		switch {
		case errors.Is(err, shootout.ErrPlayerBusy):
			code, key = "player_busy", "error.player_busy"
		case errors.Is(err, shootout.ErrTooManyMatches):
			code, key = "server_full", "error.server_full"
		}
		s.reply(ctx, c, code, key, nil)
		s.reply(ctx, challenger, code, key, nil)
		s.logger.Warn("match_create_error", zap.String("challenge_id", ch.ID), zap.Error(err))
	}
}

func (s *Server) notifyDeclined(ctx context.Context, userID string, ch lobby.Challenge, key, name string) {
	conn := s.hub.Get(userID)
	if conn == nil {
		return
	}
	_ = conn.Send(ctx, wire.Event{Type: wire.EventChallengeDeclined, Data: wire.ChallengePayload{
		ChallengeID: ch.ID,
		From:        wire.UserPayload{ID: ch.ChallengerID},
		To:          wire.UserPayload{ID: ch.TargetID},
		Text:        s.texts.Text(key, map[string]any{"Name": name}),
	}})
}

func (s *Server) expireChallenges() {
	ctx, cancel := context.WithTimeout(s.ctx, writeTimeout)
	defer cancel()
	for _, ch := range s.lobby.Expire() {
		for _, id := range []string{ch.ChallengerID, ch.TargetID} {
			s.notifyDeclined(ctx, id, ch, "lobby.challenge_expired", "")
		}
	}
}
