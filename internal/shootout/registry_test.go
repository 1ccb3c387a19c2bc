package shootout

import (
	"context"
	"errors"
	"testing"
)

func newTestRegistry(t *testing.T, max int) (*Registry, *fixture) {
	t.Helper()
	f := &fixture{sched: &fakeScheduler{}, gw: newGateway(), bc: &recBroadcaster{}, obs: &recObserver{}, closed: make(chan *Session, 4)}
	return NewRegistry(f.options(), max), f
}

func TestRegistryCreateAndLookup(t *testing.T) {
	r, f := newTestRegistry(t, 0)
	a, b := newPeer("a"), newPeer("b")
	s, err := r.Create(context.Background(), a, b)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.SessionFor("a") != s || r.SessionFor("b") != s || r.Lookup(s.ID()) != s {
		t.Fatalf("session not indexed")
	}
	if !r.Busy("a") || r.Busy("c") {
		t.Fatalf("busy flags wrong")
	}
	if a.count("match_start") != 1 {
		t.Fatalf("created session not started")
	}
	if f.sched.next("first_move") == nil {
		t.Fatalf("first move not scheduled")
	}

	if _, err := r.Create(context.Background(), a, newPeer("c")); !errors.Is(err, ErrPlayerBusy) {
		t.Fatalf("busy player: %v", err)
	}
	if r.Count() != 1 || len(r.Sessions()) != 1 {
		t.Fatalf("count = %d", r.Count())
	}
}

func TestRegistryForgetsClosedSession(t *testing.T) {
	r, f := newTestRegistry(t, 0)
	a, b := newPeer("a"), newPeer("b")
	s, err := r.Create(context.Background(), a, b)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.HandleDisconnect(context.Background(), a); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if r.SessionFor("a") != nil || r.SessionFor("b") != nil || r.Count() != 0 {
		t.Fatalf("closed session still registered")
	}
	select {
	case <-f.closed:
	default:
		t.Fatalf("caller OnClose not chained")
	}
	if _, err := r.Create(context.Background(), a, b); err != nil {
		t.Fatalf("players should be free again: %v", err)
	}
}

func TestRegistryLimit(t *testing.T) {
	r, _ := newTestRegistry(t, 1)
	if _, err := r.Create(context.Background(), newPeer("a"), newPeer("b")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := r.Create(context.Background(), newPeer("c"), newPeer("d")); !errors.Is(err, ErrTooManyMatches) {
		t.Fatalf("expected limit error, got %v", err)
	}
	if r.Busy("c") {
		t.Fatalf("rejected player left reserved")
	}
}

func TestRegistryRejectsSelfMatch(t *testing.T) {
	r, _ := newTestRegistry(t, 0)
	a := newPeer("a")
	if _, err := r.Create(context.Background(), a, a); !errors.Is(err, ErrInvalidPeers) {
		t.Fatalf("self match: %v", err)
	}
}
