package domain

import "time"

// Sender identifies who produced a transcript message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one transcript entry. Bot messages always carry an Action and a
// non-nil Parameters bag; user messages carry neither.
type Message struct {
	ID         string
	Text       string
	Sender     Sender
	Timestamp  time.Time
	Action     Action
	Parameters Parameters
}
