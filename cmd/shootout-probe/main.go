package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/park285/shootout-server/pkg/shootclient"
	"github.com/park285/shootout-server/pkg/wire"
)

// shootout-probe checks a running server: admin health, leaderboard and a
// hello round trip over the player socket.
func main() {
	_ = godotenv.Load()
	adminURL := os.Getenv("SHOOTOUT_ADMIN_URL")
	wsURL := os.Getenv("SHOOTOUT_WS_URL")
	userID := os.Getenv("PROBE_USER_ID")
	if userID == "" {
		userID = "probe-" + uuid.NewString()[:8]
	}

	if adminURL == "" {
		log.Fatal("SHOOTOUT_ADMIN_URL is required")
	}

	admin := shootclient.NewAdmin(adminURL, shootclient.WithTimeout(8*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if h, err := admin.Health(ctx); err != nil {
		log.Printf("/healthz error: %v", err)
	} else {
		log.Printf("/healthz %s checks=%v", h.Status, h.Checks)
	}
	if rows, err := admin.Leaderboard(ctx, 5); err != nil {
		log.Printf("/leaderboard error: %v", err)
	} else {
		for i, r := range rows {
			fmt.Printf("%d. %s (%s) points=%d wins=%d/%d\n", i+1, r.Name, r.PlayerID, r.Points, r.Wins, r.Played)
		}
	}

	if wsURL == "" {
		log.Println("SHOOTOUT_WS_URL not set; skipping WS check")
		return
	}

	p := shootclient.NewPlayer(wsURL, wire.HelloRequest{UserID: userID, Name: userID}, 0)
	p.OnStateChange(func(state shootclient.State) {
		log.Printf("WS state: %s", state)
	})
	p.OnEvent(func(ev *shootclient.Event) {
		fmt.Printf("WS event type=%s data=%s\n", ev.Type, ev.Data)
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := p.Connect(cctx); err != nil {
		log.Printf("WS connect error: %v", err)
		return
	}
	if err := p.Send(cctx, wire.RequestListOnline, nil); err != nil {
		log.Printf("WS list_online error: %v", err)
	}

	// Observe for a short window
	t := time.NewTimer(3 * time.Second)
	<-t.C

	_ = p.Close(context.Background())
}
