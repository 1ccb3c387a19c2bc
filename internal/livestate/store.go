package livestate

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/park285/shootout-server/internal/obslog"
	"github.com/park285/shootout-server/internal/shootout"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	ttlLive    = 24 * time.Hour
	ttlClosed  = 10 * time.Minute
	maxRetries = 3
)

// Store mirrors session snapshots into Redis so other processes can read
// live match state.
type Store struct {
	rdb *redis.Client
}

var _ shootout.Observer = (*Store)(nil)

func New(redisURL string) (*Store, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for live state")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Store{rdb: rdb}, nil
}

func NewWithClient(rdb *redis.Client) *Store { return &Store{rdb: rdb} }

func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func (s *Store) Ping(ctx context.Context) error { return s.rdb.Ping(ctx).Err() }

func sessionKey(id string) string { return "shootout:session:" + strings.TrimSpace(id) }
func userKey(id string) string    { return "shootout:index:user:" + strings.TrimSpace(id) }

const liveKey = "shootout:live"

// Publish stores snap unless a newer version is already there.
func (s *Store) Publish(ctx context.Context, snap shootout.Snapshot) error {
	key := sessionKey(snap.SessionID)
	raw, err := json.Marshal(&snap)
	if err != nil {
		return err
	}
	players := []string{snap.PlayerAID, snap.PlayerBID}

	apply := func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil {
			var prev shootout.Snapshot
			if jerr := json.Unmarshal(cur, &prev); jerr == nil && prev.Version >= snap.Version {
				return errStale
			}
		}
		idx := make(map[string]string, len(players))
		for _, p := range players {
			v, err := tx.Get(ctx, userKey(p)).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			idx[p] = v
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if snap.Closed {
				pipe.Set(ctx, key, raw, ttlClosed)
				pipe.SRem(ctx, liveKey, snap.SessionID)
				for _, p := range players {
					if idx[p] == snap.SessionID {
						pipe.Del(ctx, userKey(p))
					}
				}
				return nil
			}
			pipe.Set(ctx, key, raw, ttlLive)
			pipe.SAdd(ctx, liveKey, snap.SessionID)
			pipe.Expire(ctx, liveKey, ttlLive)
			for _, p := range players {
				pipe.Set(ctx, userKey(p), snap.SessionID, ttlLive)
			}
			return nil
		})
		return err
	}

	watched := []string{key, userKey(players[0]), userKey(players[1])}
	for i := 0; i < maxRetries; i++ {
		err = s.rdb.Watch(ctx, apply, watched...)
		if errors.Is(err, errStale) {
			return nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	obslog.L().Warn("livestate_publish_conflict", zap.String("session_id", snap.SessionID), zap.Uint64("version", snap.Version))
	return err
}

var errStale = errors.New("stale snapshot")

// Session returns the stored snapshot, or nil when none exists.
func (s *Store) Session(ctx context.Context, sessionID string) (*shootout.Snapshot, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap shootout.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// ActiveMatchByUser returns the live snapshot for the match userID is in.
func (s *Store) ActiveMatchByUser(ctx context.Context, userID string) (*shootout.Snapshot, error) {
	id, err := s.rdb.Get(ctx, userKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	snap, err := s.Session(ctx, id)
	if err != nil || snap == nil || snap.Closed {
		return nil, err
	}
	return snap, nil
}

// LiveSessions lists snapshots of every open session. Entries whose
// snapshot expired are dropped from the index.
func (s *Store) LiveSessions(ctx context.Context) ([]shootout.Snapshot, error) {
	ids, err := s.rdb.SMembers(ctx, liveKey).Result()
	if err != nil {
		return nil, err
	}
	out := make([]shootout.Snapshot, 0, len(ids))
	for _, id := range ids {
		snap, err := s.Session(ctx, id)
		if err != nil {
			return nil, err
		}
		if snap == nil || snap.Closed {
			_ = s.rdb.SRem(ctx, liveKey, id).Err()
			continue
		}
		out = append(out, *snap)
	}
	return out, nil
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	opts := &redis.Options{Addr: u.Host, Username: u.User.Username(), Password: pass, DB: db}
	if u.Scheme == "rediss" {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: u.Hostname()}
	}
	return opts, nil
}
