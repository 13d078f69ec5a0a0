package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"hermes/internal/agents"
	"hermes/internal/routing"
	"hermes/pkg/logger"
)

// Handler routes Telegram updates through the assistant orchestrator and
// sends the replies back.
type Handler struct {
	bot          *Bot
	orchestrator *agents.Orchestrator
	log          *logger.Logger
}

// NewHandler creates a Telegram update handler.
func NewHandler(bot *Bot, orchestrator *agents.Orchestrator) *Handler {
	return &Handler{
		bot:          bot,
		orchestrator: orchestrator,
		log:          logger.Get().With("component", "telegram_handler"),
	}
}

// Route processes one update. Non-text updates are ignored; the assistant
// only speaks in text.
func (h *Handler) Route(ctx context.Context, update tgbotapi.Update) error {
	if update.Message == nil || update.Message.Text == "" {
		return nil
	}

	chatID := update.Message.Chat.ID
	var userID int64
	if update.Message.From != nil {
		userID = update.Message.From.ID
	}

	h.log.Debugw("Processing telegram message",
		"chat_id", chatID,
		"update_id", update.UpdateID,
	)

	resp := h.orchestrator.ProcessMessage(ctx, agents.Request{
		Message:    update.Message.Text,
		BotType:    routing.BotTypeTelegram,
		ChatID:     chatID,
		UserID:     userID,
		SaveToChat: true,
	})

	return h.bot.SendMessage(ctx, chatID, renderReply(resp))
}

// renderReply flattens a response plus its follow-up suggestions into one
// Telegram message.
func renderReply(resp *agents.Response) string {
	if len(resp.FollowupSuggestions) == 0 {
		return resp.Response
	}

	var sb strings.Builder
	sb.WriteString(resp.Response)
	sb.WriteString("\n")
	for _, suggestion := range resp.FollowupSuggestions {
		sb.WriteString("\n• ")
		sb.WriteString(suggestion)
	}
	return sb.String()
}
