package chat

import "context"

// Repository is the message-log collaborator the orchestrator depends on.
// Only the operations the routing layer needs are specified here.
type Repository interface {
	// Append stores a message and fills in its ID and CreatedAt.
	Append(ctx context.Context, msg *Message) error

	// Recent returns the last n messages of a chat ordered ascending by time.
	Recent(ctx context.Context, chatID int64, n int) ([]Message, error)

	// MarkRead flags every message in the chat as read.
	MarkRead(ctx context.Context, chatID int64) error
}
