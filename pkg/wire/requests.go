package wire

import (
	"encoding/json"
	"strings"
)

// Inbound request types sent by a player.
const (
	RequestHello            = "hello"
	RequestShot             = "shot"
	RequestSave             = "save"
	RequestRematchVote      = "rematch_vote"
	RequestQuit             = "quit"
	RequestChallenge        = "challenge"
	RequestChallengeAccept  = "challenge_accept"
	RequestChallengeDecline = "challenge_decline"
	RequestListOnline       = "list_online"
)

// Request is the envelope read from a player's connection. Data is decoded
// according to Type.
type Request struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// HelloRequest identifies the connecting player.
type HelloRequest struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// DirectionRequest is the payload of shot and save.
type DirectionRequest struct {
	Direction string `json:"direction"`
}

// RematchVoteRequest answers a play_again_request.
type RematchVoteRequest struct {
	Accept bool `json:"accept"`
}

// ChallengeRequest invites another online player.
type ChallengeRequest struct {
	TargetID string `json:"target_id"`
}

// ChallengeAnswerRequest accepts or declines a challenge. An empty id
// answers whichever challenge is pending for the player.
type ChallengeAnswerRequest struct {
	ChallengeID string `json:"challenge_id"`
}

// Kind returns the normalized request type.
func (r Request) Kind() string {
	return strings.ToLower(strings.TrimSpace(r.Type))
}

// Decode unmarshals Data into v. Empty data leaves v untouched.
func (r Request) Decode(v any) error {
	if len(r.Data) == 0 {
		return nil
	}
	return json.Unmarshal(r.Data, v)
}
