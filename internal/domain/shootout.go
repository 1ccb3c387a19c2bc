package domain

import "time"

type Player struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Points    int       `json:"points"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

type MatchRecord struct {
	ID        string    `json:"id"`
	Player1ID string    `json:"player1_id"`
	Player2ID string    `json:"player2_id"`
	WinnerID  string    `json:"winner_id,omitempty"`
	EndReason string    `json:"end_reason,omitempty"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
}

// KickRecord is one stored sub-turn of a match.
type KickRecord struct {
	MatchID             string    `json:"match_id"`
	Round               int       `json:"round"`
	ShooterID           string    `json:"shooter_id"`
	GoalkeeperID        string    `json:"goalkeeper_id"`
	ShooterDirection    string    `json:"shooter_direction"`
	GoalkeeperDirection string    `json:"goalkeeper_direction"`
	Result              string    `json:"result"`
	CreatedAt           time.Time `json:"created_at"`
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
