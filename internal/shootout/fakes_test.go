package shootout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/park285/shootout-server/pkg/wire"
	"go.uber.org/zap"
)

type recPeer struct {
	id, name string

	mu     sync.Mutex
	events []wire.Event
	broken bool
}

func newPeer(id string) *recPeer { return &recPeer{id: id, name: strings.ToUpper(id)} }

func (p *recPeer) ID() string   { return p.id }
func (p *recPeer) Name() string { return p.name }

func (p *recPeer) Send(_ context.Context, ev wire.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.broken {
		return errors.New("broken pipe")
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recPeer) breakConn() {
	p.mu.Lock()
	p.broken = true
	p.mu.Unlock()
}

func (p *recPeer) reset() {
	p.mu.Lock()
	p.events = nil
	p.mu.Unlock()
}

func (p *recPeer) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

func (p *recPeer) count(typ string) int {
	n := 0
	for _, t := range p.types() {
		if t == typ {
			n++
		}
	}
	return n
}

func (p *recPeer) last(typ string) (wire.Event, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.events) - 1; i >= 0; i-- {
		if p.events[i].Type == typ {
			return p.events[i], true
		}
	}
	return wire.Event{}, false
}

type fakeJob struct {
	name    string
	d       time.Duration
	fn      func()
	mu      sync.Mutex
	stopped bool
	fired   bool
}

func (j *fakeJob) Stop() {
	j.mu.Lock()
	j.stopped = true
	j.mu.Unlock()
}

func (j *fakeJob) pending() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return !j.stopped && !j.fired
}

// fakeScheduler never fires on its own; tests fire jobs explicitly.
type fakeScheduler struct {
	mu   sync.Mutex
	jobs []*fakeJob
}

func (f *fakeScheduler) After(d time.Duration, name string, fn func()) (Timer, error) {
	j := &fakeJob{name: name, d: d, fn: fn}
	f.mu.Lock()
	f.jobs = append(f.jobs, j)
	f.mu.Unlock()
	return j, nil
}

// next returns the oldest pending job whose name starts with prefix.
func (f *fakeScheduler) next(prefix string) *fakeJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, j := range f.jobs {
		if strings.HasPrefix(j.name, prefix) && j.pending() {
			return j
		}
	}
	return nil
}

func (f *fakeScheduler) fire(t *testing.T, prefix string) *fakeJob {
	t.Helper()
	j := f.next(prefix)
	if j == nil {
		t.Fatalf("no pending job with prefix %q", prefix)
	}
	j.mu.Lock()
	j.fired = true
	j.mu.Unlock()
	j.fn()
	return j
}

type fakeGateway struct {
	mu        sync.Mutex
	created   [][2]string
	createErr error
	kicks     []Kick
	winners   map[string]string
	reasons   map[string]EndReason
	points    map[string]int
	presence  map[string]Presence
}

func newGateway() *fakeGateway {
	return &fakeGateway{
		winners:  make(map[string]string),
		reasons:  make(map[string]EndReason),
		points:   make(map[string]int),
		presence: make(map[string]Presence),
	}
}

func (g *fakeGateway) CreateMatch(_ context.Context, a, b string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return "", g.createErr
	}
	g.created = append(g.created, [2]string{a, b})
	return fmt.Sprintf("m%d", len(g.created)), nil
}

func (g *fakeGateway) RecordKick(_ context.Context, k Kick) error {
	g.mu.Lock()
	g.kicks = append(g.kicks, k)
	g.mu.Unlock()
	return nil
}

func (g *fakeGateway) SetMatchWinner(_ context.Context, matchID, winnerID string, reason EndReason) error {
	g.mu.Lock()
	g.winners[matchID] = winnerID
	g.reasons[matchID] = reason
	g.mu.Unlock()
	return nil
}

func (g *fakeGateway) AwardPoints(_ context.Context, id string, delta int) error {
	g.mu.Lock()
	g.points[id] += delta
	g.mu.Unlock()
	return nil
}

func (g *fakeGateway) SetPresence(_ context.Context, id string, status Presence) error {
	g.mu.Lock()
	g.presence[id] = status
	g.mu.Unlock()
	return nil
}

func (g *fakeGateway) kickCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.kicks)
}

func (g *fakeGateway) presenceOf(id string) Presence {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.presence[id]
}

func (g *fakeGateway) pointsOf(id string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.points[id]
}

func (g *fakeGateway) winner(matchID string) (string, EndReason) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.winners[matchID], g.reasons[matchID]
}

func (g *fakeGateway) createdCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.created)
}

type keyTexts struct{}

func (keyTexts) Text(key string, _ map[string]any) string { return key }

type recBroadcaster struct {
	mu     sync.Mutex
	events []wire.Event
}

func (b *recBroadcaster) Broadcast(_ context.Context, ev wire.Event) {
	b.mu.Lock()
	b.events = append(b.events, ev)
	b.mu.Unlock()
}

func (b *recBroadcaster) texts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, ev := range b.events {
		if p, ok := ev.Data.(wire.TextPayload); ok {
			out = append(out, p.Text)
		}
	}
	return out
}

type recObserver struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (o *recObserver) Publish(_ context.Context, s Snapshot) error {
	o.mu.Lock()
	o.snaps = append(o.snaps, s)
	o.mu.Unlock()
	return nil
}

type fixture struct {
	s      *Session
	a, b   *recPeer
	sched  *fakeScheduler
	gw     *fakeGateway
	bc     *recBroadcaster
	obs    *recObserver
	closed chan *Session
}

// newFixture starts a session where A opens as shooter and the first
// your_turn has already been sent.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		a:      newPeer("a"),
		b:      newPeer("b"),
		sched:  &fakeScheduler{},
		gw:     newGateway(),
		bc:     &recBroadcaster{},
		obs:    &recObserver{},
		closed: make(chan *Session, 1),
	}
	s, err := NewSession(context.Background(), f.options(), f.a, f.b)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	f.s = s
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.sched.fire(t, "first_move")
	return f
}

func (f *fixture) options() Options {
	return Options{
		Gateway:     f.gw,
		Scheduler:   f.sched,
		Texts:       keyTexts{},
		Observer:    f.obs,
		Broadcaster: f.bc,
		Logger:      zap.NewNop(),
		TurnTimeout: 15 * time.Second,
		WinBonus:    3,
		Coin:        func() bool { return true },
		OnClose:     func(s *Session) { f.closed <- s },
	}
}

// kick plays one full sub-turn.
func (f *fixture) kick(t *testing.T, shooter, keeper *recPeer, shot, save string) {
	t.Helper()
	ctx := context.Background()
	if err := f.s.SubmitShot(ctx, shooter, shot); err != nil {
		t.Fatalf("shot by %s: %v", shooter.id, err)
	}
	if err := f.s.SubmitSave(ctx, keeper, save); err != nil {
		t.Fatalf("save by %s: %v", keeper.id, err)
	}
}

// round plays a regulation round where A opens. aScores and bScores decide
// whether each shot goes in.
func (f *fixture) round(t *testing.T, aScores, bScores bool) {
	t.Helper()
	save := func(goal bool) string {
		if goal {
			return "Right"
		}
		return "Left"
	}
	f.kick(t, f.a, f.b, "Left", save(aScores))
	f.kick(t, f.b, f.a, "Left", save(bScores))
}
