package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/park285/shootout-server/internal/domain"
	"github.com/park285/shootout-server/internal/shootout"
)

//go:embed schema.sql
var schemaSQL string

type Postgres struct {
	db *sql.DB
}

var _ Store = (*Postgres)(nil)

func NewPostgres(databaseURL string) (*Postgres, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// EnsureSchema creates missing tables. Safe to run on every boot.
func (r *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (r *Postgres) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Postgres) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

const upsertPlayerQuery = `
	INSERT INTO players (id, name) VALUES ($1, $2)
	ON CONFLICT (id) DO UPDATE SET
		name = CASE WHEN EXCLUDED.name = '' THEN players.name ELSE EXCLUDED.name END,
		updated_at = now()`

func (r *Postgres) UpsertPlayer(ctx context.Context, id, name string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidPlayer
	}
	_, err := r.db.ExecContext(ctx, upsertPlayerQuery, id, strings.TrimSpace(name))
	return err
}

func (r *Postgres) Player(ctx context.Context, id string) (*domain.Player, error) {
	const q = `SELECT id, name, points, status, updated_at FROM players WHERE id = $1`
	var p domain.Player
	err := r.db.QueryRowContext(ctx, q, id).Scan(&p.ID, &p.Name, &p.Points, &p.Status, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateMatch inserts both players if unknown, then the match row.
func (r *Postgres) CreateMatch(ctx context.Context, playerAID, playerBID string) (string, error) {
	if strings.TrimSpace(playerAID) == "" || strings.TrimSpace(playerBID) == "" {
		return "", ErrInvalidPlayer
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range []string{playerAID, playerBID} {
		if _, err := tx.ExecContext(ctx, `INSERT INTO players (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, id); err != nil {
			return "", fmt.Errorf("ensure player %s: %w", id, err)
		}
	}
	id := uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO matches (id, player1_id, player2_id) VALUES ($1, $2, $3)`,
		id, playerAID, playerBID,
	); err != nil {
		return "", fmt.Errorf("insert match: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

func (r *Postgres) RecordKick(ctx context.Context, k shootout.Kick) error {
	const q = `
		INSERT INTO match_kicks (
			match_id, round, shooter_id, goalkeeper_id,
			shooter_direction, goalkeeper_direction, result
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, q,
		k.MatchID, k.Round, k.ShooterID, k.GoalkeeperID,
		k.ShotDirection, k.SaveDirection, string(k.Outcome),
	)
	return err
}

// SetMatchWinner closes the match. An empty winnerID stores a draw.
func (r *Postgres) SetMatchWinner(ctx context.Context, matchID, winnerID string, reason shootout.EndReason) error {
	const q = `UPDATE matches SET winner_id = NULLIF($2, ''), end_reason = $3, ended_at = now() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, matchID, winnerID, string(reason))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrMatchNotFound
	}
	return nil
}

func (r *Postgres) AwardPoints(ctx context.Context, playerID string, delta int) error {
	const q = `
		INSERT INTO players (id, points) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET points = players.points + EXCLUDED.points, updated_at = now()`
	_, err := r.db.ExecContext(ctx, q, playerID, delta)
	return err
}

func (r *Postgres) SetPresence(ctx context.Context, playerID string, status shootout.Presence) error {
	const q = `
		INSERT INTO players (id, status) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, updated_at = now()`
	_, err := r.db.ExecContext(ctx, q, playerID, string(status))
	return err
}

func (r *Postgres) ResetPresence(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE players SET status = 'offline', updated_at = now() WHERE status <> 'offline'`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *Postgres) Match(ctx context.Context, id string) (*domain.MatchRecord, error) {
	const q = `
		SELECT id, player1_id, player2_id, COALESCE(winner_id, ''), COALESCE(end_reason, ''), started_at, ended_at
		FROM matches WHERE id = $1`
	var (
		m     domain.MatchRecord
		ended sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(&m.ID, &m.Player1ID, &m.Player2ID, &m.WinnerID, &m.EndReason, &m.StartedAt, &ended)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if ended.Valid {
		m.EndedAt = ended.Time
	}
	return &m, nil
}

func (r *Postgres) MatchKicks(ctx context.Context, matchID string) ([]domain.KickRecord, error) {
	const q = `
		SELECT match_id, round, shooter_id, goalkeeper_id, shooter_direction, goalkeeper_direction, result, created_at
		FROM match_kicks WHERE match_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.KickRecord{}
	for rows.Next() {
		var k domain.KickRecord
		if err := rows.Scan(&k.MatchID, &k.Round, &k.ShooterID, &k.GoalkeeperID, &k.ShooterDirection, &k.GoalkeeperDirection, &k.Result, &k.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

const leaderboardQuery = `
	SELECT p.id, p.name, p.points,
		(SELECT COUNT(*) FROM matches m WHERE m.winner_id = p.id) AS wins,
		(SELECT COUNT(*) FROM matches m WHERE (m.player1_id = p.id OR m.player2_id = p.id) AND m.ended_at IS NOT NULL) AS played,
		(SELECT COUNT(*) FROM match_kicks k WHERE k.shooter_id = p.id AND k.result = 'goal') AS goals_scored,
		(SELECT COUNT(*) FROM match_kicks k WHERE k.goalkeeper_id = p.id AND k.result = 'saved') AS goals_saved
	FROM players p
	ORDER BY p.points DESC, p.id ASC
	LIMIT $1`

func (r *Postgres) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	rows, err := r.db.QueryContext(ctx, leaderboardQuery, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.LeaderboardEntry{}
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.PlayerID, &e.Name, &e.Points, &e.Wins, &e.Played, &e.GoalsScored, &e.GoalsSaved); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
