package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"hermes/internal/domain/chat"
	"hermes/pkg/errors"
)

// Compile-time check
var _ chat.Repository = (*ChatRepository)(nil)

// ChatRepository implements chat.Repository using sqlx
type ChatRepository struct {
	db *sqlx.DB
}

// NewChatRepository creates a new chat message repository
func NewChatRepository(db *sqlx.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// Append inserts a message and fills in its generated ID and timestamp.
func (r *ChatRepository) Append(ctx context.Context, msg *chat.Message) error {
	if !msg.Sender.IsValid() {
		return errors.Wrapf(errors.ErrInvalidInput, "invalid sender %q", msg.Sender)
	}

	query := `
		INSERT INTO messages (chat_id, sender, body, is_edited, is_read)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRowxContext(ctx, query,
		msg.ChatID, msg.Sender, msg.Body, msg.IsEdited, msg.IsRead,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "append chat message")
	}

	return nil
}

// Recent returns the last n messages of a chat, ascending by time. The inner
// query selects the newest n; the outer one restores chronological order so
// callers can feed the result straight into history formatting.
func (r *ChatRepository) Recent(ctx context.Context, chatID int64, n int) ([]chat.Message, error) {
	if n <= 0 {
		n = 10
	}

	query := `
		SELECT id, chat_id, sender, body, is_edited, is_read, created_at
		FROM (
			SELECT id, chat_id, sender, body, is_edited, is_read, created_at
			FROM messages
			WHERE chat_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) tail
		ORDER BY created_at ASC, id ASC`

	var messages []chat.Message
	if err := r.db.SelectContext(ctx, &messages, query, chatID, n); err != nil {
		return nil, errors.Wrap(err, "fetch recent chat messages")
	}

	return messages, nil
}

// MarkRead flags every message in the chat as read.
func (r *ChatRepository) MarkRead(ctx context.Context, chatID int64) error {
	query := `UPDATE messages SET is_read = TRUE WHERE chat_id = $1 AND is_read = FALSE`

	if _, err := r.db.ExecContext(ctx, query, chatID); err != nil {
		return errors.Wrap(err, "mark chat messages read")
	}
	return nil
}
