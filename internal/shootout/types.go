package shootout

import "time"

// Phase is the lifecycle position of a match session.
type Phase string

const (
	PhaseAwaitingShot      Phase = "AWAITING_SHOT"
	PhaseAwaitingSave      Phase = "AWAITING_SAVE"
	PhaseRoundComplete     Phase = "ROUND_COMPLETE"
	PhaseSuddenDeathFirst  Phase = "SUDDEN_DEATH_FIRST"
	PhaseSuddenDeathSecond Phase = "SUDDEN_DEATH_SECOND"
	PhaseConcluded         Phase = "CONCLUDED"
	PhaseRematchPending    Phase = "REMATCH_PENDING"
)

// Role is the function a peer holds for the sub-turn in flight.
type Role int

const (
	RoleShooter Role = iota
	RoleGoalkeeper
)

func (r Role) String() string {
	if r == RoleGoalkeeper {
		return "goalkeeper"
	}
	return "shooter"
}

// Vote is a rematch answer. The zero value is VotePending.
type Vote int

const (
	VotePending Vote = iota
	VoteAccepted
	VoteDeclined
)

func (v Vote) String() string {
	switch v {
	case VoteAccepted:
		return "accepted"
	case VoteDeclined:
		return "declined"
	default:
		return "pending"
	}
}

// Outcome of one kick.
type Outcome string

const (
	OutcomeGoal  Outcome = "goal"
	OutcomeSaved Outcome = "saved"
)

// EndReason is stored with the match winner.
type EndReason string

const (
	ReasonNormal     EndReason = "normal"
	ReasonPlayerQuit EndReason = "player_quit"
)

// Presence is a user's status as seen by other users.
type Presence string

const (
	PresenceOnline  Presence = "online"
	PresenceOffline Presence = "offline"
	PresenceInGame  Presence = "ingame"
)

// DefaultDirection is substituted when a player lets the turn deadline pass.
const DefaultDirection = "Middle"

const (
	regulationRounds = 5
	winScore         = 3
)

// Kick is one resolved sub-turn as handed to the Gateway.
type Kick struct {
	MatchID       string
	Round         int
	ShooterID     string
	GoalkeeperID  string
	ShotDirection string
	SaveDirection string
	Outcome       Outcome
}

// Snapshot is a point-in-time copy of a session, safe to hand to other goroutines.
type Snapshot struct {
	SessionID   string    `json:"session_id"`
	MatchID     string    `json:"match_id"`
	Version     uint64    `json:"version"`
	PlayerAID   string    `json:"player_a_id"`
	PlayerAName string    `json:"player_a_name"`
	PlayerBID   string    `json:"player_b_id"`
	PlayerBName string    `json:"player_b_name"`
	ScoreA      int       `json:"score_a"`
	ScoreB      int       `json:"score_b"`
	Round       int       `json:"round"`
	Phase       Phase     `json:"phase"`
	Step        Phase     `json:"step"`
	ShooterID   string    `json:"shooter_id"`
	KeeperID    string    `json:"keeper_id"`
	SuddenDeath bool      `json:"sudden_death"`
	Kicks       int       `json:"kicks"`
	VoteA       Vote      `json:"vote_a"`
	VoteB       Vote      `json:"vote_b"`
	WinnerID    string    `json:"winner_id,omitempty"`
	EndReason   EndReason `json:"end_reason,omitempty"`
	Closed      bool      `json:"closed"`
	UpdatedAt   time.Time `json:"updated_at"`
}
