package wire

// Outbound event types sent from the server to a player.
const (
	EventMatchStart       = "match_start"
	EventYourTurn         = "your_turn"
	EventOpponentTurn     = "opponent_turn"
	EventGoalkeeperTurn   = "goalkeeper_turn"
	EventKickResult       = "kick_result"
	EventUpdateScore      = "update_score"
	EventMatchResult      = "match_result"
	EventPlayAgainRequest = "play_again_request"
	EventMatchEnd         = "match_end"
	EventTimeout          = "timeout"
	EventOpponentTimeout  = "opponent_timeout"
	EventStatusUpdate     = "status_update"
	EventError            = "error"

	EventWelcome           = "welcome"
	EventOnlineUsers       = "online_users"
	EventChallengeReceived = "challenge_received"
	EventChallengeSent     = "challenge_sent"
	EventChallengeDeclined = "challenge_declined"
)

// Event is the envelope written to a player's connection.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// TextPayload carries a user-facing message.
type TextPayload struct {
	Text string `json:"text"`
}

// MatchStartPayload tells a player which role they open the match with.
type MatchStartPayload struct {
	MatchID      string `json:"match_id"`
	Role         string `json:"role"`
	Text         string `json:"text"`
	OpponentID   string `json:"opponent_id"`
	OpponentName string `json:"opponent_name"`
}

// TurnPayload carries the deadline of the turn being announced.
type TurnPayload struct {
	Seconds int `json:"seconds"`
}

// KickResultPayload is the outcome of one shot/save exchange.
type KickResultPayload struct {
	Outcome       string `json:"outcome"`
	ShotDirection string `json:"shot_direction"`
	SaveDirection string `json:"save_direction"`
	ShooterID     string `json:"shooter_id"`
}

// ScorePayload is the score from the receiving player's point of view.
type ScorePayload struct {
	Self     int `json:"self"`
	Opponent int `json:"opponent"`
	Round    int `json:"round"`
}

// ResultPayload is "win" or "lose".
type ResultPayload struct {
	Result string `json:"result"`
}

// ErrorPayload reports a rejected action. The match state is unchanged.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// UserPayload describes an online user.
type UserPayload struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Presence string `json:"presence,omitempty"`
}

// ChallengePayload describes a pending challenge.
type ChallengePayload struct {
	ChallengeID string      `json:"challenge_id"`
	From        UserPayload `json:"from"`
	To          UserPayload `json:"to"`
	Text        string      `json:"text,omitempty"`
}

// WelcomePayload confirms a hello.
type WelcomePayload struct {
	User UserPayload `json:"user"`
	Text string      `json:"text"`
}

// OnlineUsersPayload lists every connected user.
type OnlineUsersPayload struct {
	Users []UserPayload `json:"users"`
}
