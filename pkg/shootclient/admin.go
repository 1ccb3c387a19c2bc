package shootclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// ErrNotFound is returned for a 404 from the admin API.
var ErrNotFound = errors.New("not found")

// Admin talks to the read-only admin API.
type Admin struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Admin)

func WithTimeout(d time.Duration) Option {
	return func(a *Admin) { a.defaultTimeout = d }
}

func WithRetry(max int) Option {
	return func(a *Admin) { a.retryMax = max }
}

func NewAdmin(baseURL string, opts ...Option) *Admin {
	a := &Admin{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type Health struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Health reports the server's probes. A degraded server still returns a body.
func (a *Admin) Health(ctx context.Context) (*Health, error) {
	var h Health
	err := a.getJSON(ctx, "/healthz", &h)
	var se *StatusError
	if errors.As(err, &se) && se.Code == fasthttp.StatusServiceUnavailable {
		return &h, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

type LeaderboardEntry struct {
	PlayerID    string `json:"player_id"`
	Name        string `json:"name"`
	Points      int    `json:"points"`
	Wins        int    `json:"wins"`
	Played      int    `json:"played"`
	GoalsScored int    `json:"goals_scored"`
	GoalsSaved  int    `json:"goals_saved"`
}

func (a *Admin) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	var out struct {
		Entries []LeaderboardEntry `json:"entries"`
	}
	if err := a.getJSON(ctx, "/leaderboard?limit="+strconv.Itoa(limit), &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

// LiveMatch is the subset of a live snapshot a client cares about.
type LiveMatch struct {
	SessionID string `json:"session_id"`
	MatchID   string `json:"match_id"`
	PlayerAID string `json:"player_a_id"`
	PlayerBID string `json:"player_b_id"`
	ScoreA    int    `json:"score_a"`
	ScoreB    int    `json:"score_b"`
	Round     int    `json:"round"`
	Phase     string `json:"phase"`
	ShooterID string `json:"shooter_id"`
}

// PlayerMatch returns ErrNotFound when the player is not in a match.
func (a *Admin) PlayerMatch(ctx context.Context, playerID string) (*LiveMatch, error) {
	var m LiveMatch
	if err := a.getJSON(ctx, "/players/"+url.PathEscape(playerID)+"/match", &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// StatusError is a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("admin api error: status=%d body=%s", e.Code, e.Body)
}

func (a *Admin) getJSON(ctx context.Context, path string, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()
	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(a.baseURL + path)

	attempts := a.retryMax
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := a.http.DoDeadline(req, resp, a.computeDeadline(ctx)); err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
		} else {
			status := resp.StatusCode()
			if status == fasthttp.StatusNotFound {
				return ErrNotFound
			}
			var statusErr error
			if status < 200 || status >= 300 {
				statusErr = &StatusError{Code: status, Body: truncate(string(resp.Body()), 512)}
			}
			if statusErr == nil || !shouldRetryStatus(status) || attempt == attempts {
				if out != nil && len(resp.Body()) > 0 {
					if err := json.Unmarshal(resp.Body(), out); err != nil && statusErr == nil {
						return fmt.Errorf("decode response: %w", err)
					}
				}
				return statusErr
			}
			lastErr = statusErr
		}
		if attempt == attempts {
			break
		}
		if err := sleepWithContext(ctx, backoffDuration(attempt)); err != nil {
			return lastErr
		}
	}
	return lastErr
}

func (a *Admin) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(a.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base // 100ms, 200ms ...
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
