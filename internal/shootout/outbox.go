package shootout

import (
	"context"
	"errors"
	"time"

	"github.com/park285/shootout-server/pkg/wire"
	"go.uber.org/zap"
)

const effectTimeout = 5 * time.Second

// effect is work produced by a transition and performed after the state lock
// is released. Exactly one of peer or call is set.
type effect struct {
	name string
	peer Peer
	ev   wire.Event
	call func(ctx context.Context) error
}

// batch is everything one transition asked for, in emission order.
type batch struct {
	effects []effect
	after   []func(ctx context.Context)
}

func (s *Session) send(p Peer, ev wire.Event) {
	s.out.effects = append(s.out.effects, effect{name: ev.Type, peer: p, ev: ev})
}

func (s *Session) sendBoth(ev wire.Event) {
	s.send(s.players[sideA].peer, ev)
	s.send(s.players[sideB].peer, ev)
}

func (s *Session) do(name string, fn func(ctx context.Context) error) {
	s.out.effects = append(s.out.effects, effect{name: name, call: fn})
}

// then queues fn to run after the batch is delivered, with no session lock
// held. Used by work that has to re-enter the session.
func (s *Session) then(fn func(ctx context.Context)) {
	s.out.after = append(s.out.after, fn)
}

// unlockAndFlush must be called with s.mu held. It takes a delivery ticket
// for the pending batch, releases the state lock, and delivers once every
// earlier batch has been delivered, so batches leave in the order their
// transitions happened. A slow peer delays later batches but never holds mu.
func (s *Session) unlockAndFlush(ctx context.Context) {
	if len(s.out.effects) > 0 || len(s.out.after) > 0 {
		s.version++
		s.publishLocked()
	}
	b := s.out
	s.out = batch{}
	ticket := s.nextTicket
	s.nextTicket++
	s.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	s.awaitTurn(ticket)
	var failed []Peer
	func() {
		defer s.finishTurn()
		failed = s.deliver(ctx, b.effects)
	}()

	for _, fn := range b.after {
		fn(ctx)
	}
	for _, p := range failed {
		if err := s.HandleDisconnect(ctx, p); err != nil && !errors.Is(err, ErrSessionClosed) {
			s.logger.Warn("implicit_disconnect_error", zap.String("session_id", s.id), zap.String("player_id", p.ID()), zap.Error(err))
		}
	}
}

func (s *Session) awaitTurn(ticket uint64) {
	s.orderMu.Lock()
	for s.servedTicket != ticket {
		s.orderCond.Wait()
	}
	s.orderMu.Unlock()
}

func (s *Session) finishTurn() {
	s.orderMu.Lock()
	s.servedTicket++
	s.orderCond.Broadcast()
	s.orderMu.Unlock()
}

func (s *Session) deliver(ctx context.Context, effects []effect) []Peer {
	var failed []Peer
	seen := make(map[string]bool)
	for _, e := range effects {
		cctx, cancel := context.WithTimeout(ctx, effectTimeout)
		if e.peer != nil {
			if seen[e.peer.ID()] {
				cancel()
				continue
			}
			if err := e.peer.Send(cctx, e.ev); err != nil {
				s.logger.Warn("peer_send_error",
					zap.String("session_id", s.id),
					zap.String("player_id", e.peer.ID()),
					zap.String("event", e.name),
					zap.Error(err),
				)
				seen[e.peer.ID()] = true
				failed = append(failed, e.peer)
			}
		} else if e.call != nil {
			if err := e.call(cctx); err != nil {
				s.logger.Error("gateway_error",
					zap.String("session_id", s.id),
					zap.String("op", e.name),
					zap.Error(err),
				)
			}
		}
		cancel()
	}
	return failed
}

func (s *Session) publishLocked() {
	if s.opts.Observer == nil {
		return
	}
	snap := s.snapshotLocked()
	obs := s.opts.Observer
	s.do("publish_snapshot", func(ctx context.Context) error { return obs.Publish(ctx, snap) })
}
