package lobby

import "time"

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusAccepted  Status = "ACCEPTED"
	StatusDeclined  Status = "DECLINED"
	StatusExpired   Status = "EXPIRED"
	StatusCancelled Status = "CANCELLED"
)

// Challenge is an invitation from one online player to another.
type Challenge struct {
	ID           string
	ChallengerID string
	TargetID     string
	CreatedAt    time.Time
	ExpiresAt    time.Time
	Status       Status
}

func (c *Challenge) involves(userID string) bool {
	return c.ChallengerID == userID || c.TargetID == userID
}
