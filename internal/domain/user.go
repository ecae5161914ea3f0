package domain

import "time"

// User is a human account. Legacy agent-user records (IsAgentUser) predate the
// Agent entity and are only kept for the claim migration.
type User struct {
	ID           string
	Email        string
	Name         string
	AuthSubject  string
	IsAdmin      bool
	IsAgentUser  bool
	AbsorbedInto string
	AbsorbedAt   *time.Time
	CreatedAt    time.Time
}

func (u User) Absorbed() bool {
	return u.AbsorbedInto != ""
}
