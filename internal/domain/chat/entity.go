package chat

import "time"

// Sender identifies who wrote a message.
type Sender string

const (
	SenderUser   Sender = "user"
	SenderBot    Sender = "bot"
	SenderSystem Sender = "system"
)

// String returns the string representation of the sender.
func (s Sender) String() string {
	return string(s)
}

// IsValid checks if the sender value is supported.
func (s Sender) IsValid() bool {
	switch s {
	case SenderUser, SenderBot, SenderSystem:
		return true
	default:
		return false
	}
}

// Message is one entry in a chat's message log.
type Message struct {
	ID        int64     `db:"id"`
	ChatID    int64     `db:"chat_id"`
	Sender    Sender    `db:"sender"`
	Body      string    `db:"body"`
	IsEdited  bool      `db:"is_edited"`
	IsRead    bool      `db:"is_read"`
	CreatedAt time.Time `db:"created_at"`
}
