package domain

import "time"

// Session is an ephemeral per-user chat transcript. It carries no resolution
// state between turns.
type Session struct {
	ID           string
	UserID       string
	Messages     []Message
	CreatedAt    time.Time
	LastActivity time.Time
}
