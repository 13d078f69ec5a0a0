package telegram

import (
	"encoding/json"
	"net/http"

	"hermes/internal/adapters/telegram"
	"hermes/pkg/logger"
)

// WebhookHandler receives Telegram updates pushed over HTTPS.
type WebhookHandler struct {
	bot     *telegram.Bot
	handler *telegram.Handler
	log     *logger.Logger
}

// NewWebhookHandler creates a webhook handler for the given bot.
func NewWebhookHandler(bot *telegram.Bot, handler *telegram.Handler) *WebhookHandler {
	return &WebhookHandler{
		bot:     bot,
		handler: handler,
		log:     logger.Get().With("component", "telegram_webhook"),
	}
}

// ServeHTTP parses an incoming update and routes it. Telegram retries
// on non-200 responses, so routing failures are logged and acked.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	update, err := h.bot.API().HandleUpdate(r)
	if err != nil {
		h.log.Warnf("Failed to parse webhook update: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	if err := h.handler.Route(r.Context(), *update); err != nil {
		h.log.Errorf("Failed to route update %d: %v", update.UpdateID, err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// HealthCheck returns webhook health status.
func (h *WebhookHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "telegram_webhook",
	})
}
