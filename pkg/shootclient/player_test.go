package shootclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/park285/shootout-server/pkg/wire"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// echoServer answers hello with welcome and every other request with
// "echo:<type>". A "drop" request closes the socket.
func echoServer(t *testing.T, hellos *atomic.Int32) string {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close(websocket.StatusNormalClosure, "")
		ctx := r.Context()
		for {
			var req wire.Request
			if err := wsjson.Read(ctx, c, &req); err != nil {
				return
			}
			switch req.Kind() {
			case wire.RequestHello:
				hellos.Add(1)
				_ = wsjson.Write(ctx, c, wire.Event{Type: wire.EventWelcome})
			case "drop":
				_ = c.Close(websocket.StatusGoingAway, "drop")
				return
			default:
				_ = wsjson.Write(ctx, c, wire.Event{Type: "echo:" + req.Kind()})
			}
		}
	}))
	t.Cleanup(ts.Close)
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func waitFor(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case got := <-ch:
			if got == want {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestPlayerHelloAndSend(t *testing.T) {
	var hellos atomic.Int32
	p := NewPlayer(echoServer(t, &hellos), wire.HelloRequest{UserID: "u1", Name: "One"}, 0)
	events := make(chan string, 16)
	p.OnEvent(func(ev *Event) { events <- ev.Type })
	t.Cleanup(func() { _ = p.Close(context.Background()) })

	if err := p.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	waitFor(t, events, wire.EventWelcome)
	if err := p.Shot(context.Background(), "Left"); err != nil {
		t.Fatalf("shot: %v", err)
	}
	waitFor(t, events, "echo:shot")
	if p.State() != StateConnected {
		t.Fatalf("state = %s", p.State())
	}
}

func TestPlayerReconnectsAndSaysHelloAgain(t *testing.T) {
	var hellos atomic.Int32
	p := NewPlayer(echoServer(t, &hellos), wire.HelloRequest{UserID: "u1"}, 3)
	events := make(chan string, 16)
	p.OnEvent(func(ev *Event) { events <- ev.Type })
	t.Cleanup(func() { _ = p.Close(context.Background()) })

	if err := p.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	waitFor(t, events, wire.EventWelcome)
	if err := p.Send(context.Background(), "drop", nil); err != nil {
		t.Fatalf("send drop: %v", err)
	}
	waitFor(t, events, wire.EventWelcome)
	if n := hellos.Load(); n != 2 {
		t.Fatalf("hellos = %d, want 2", n)
	}
}

func TestSendBeforeConnect(t *testing.T) {
	p := NewPlayer("ws://127.0.0.1:1", wire.HelloRequest{UserID: "u1"}, 0)
	if err := p.Send(context.Background(), wire.RequestQuit, nil); err != ErrNotConnected {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}
