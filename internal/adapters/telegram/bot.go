package telegram

import (
	"context"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

// Bot wraps the Telegram Bot API with outbound rate limiting. It runs in
// polling mode by default; webhook deployments skip polling and feed
// updates through the HTTP surface instead.
type Bot struct {
	api         *tgbotapi.BotAPI
	log         *logger.Logger
	rateLimiter *rate.Limiter
	webhookMode bool
	pollTimeout int

	mu      sync.Mutex
	running bool
}

// Config contains Telegram bot configuration.
type Config struct {
	Token       string
	Debug       bool
	Timeout     int // update long-poll timeout in seconds
	WebhookMode bool
	HTTPTimeout time.Duration

	// Telegram allows ~30 messages/second; stay under it.
	RateLimitRate  int
	RateLimitBurst int
}

// NewBot creates and authorizes a Telegram bot.
func NewBot(cfg Config) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "telegram bot token is required")
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 60
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.RateLimitRate == 0 {
		cfg.RateLimitRate = 20
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 30
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create telegram bot")
	}
	api.Debug = cfg.Debug

	log := logger.Get().With("component", "telegram_bot")
	log.Infof("Authorized on account %s", api.Self.UserName)

	return &Bot{
		api:         api,
		log:         log,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRate), cfg.RateLimitBurst),
		webhookMode: cfg.WebhookMode,
		pollTimeout: cfg.Timeout,
	}, nil
}

// API exposes the underlying client for the webhook surface.
func (b *Bot) API() *tgbotapi.BotAPI {
	return b.api
}

// SetWebhook registers the webhook URL with Telegram.
func (b *Bot) SetWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return errors.Wrap(err, "invalid webhook url")
	}
	if _, err := b.api.Request(wh); err != nil {
		return errors.Wrap(err, "failed to set telegram webhook")
	}
	b.log.Infof("Telegram webhook set to %s", url)
	return nil
}

// SendMessage sends a text reply to a chat, respecting the rate limit.
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := b.rateLimiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limit wait cancelled")
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		return errors.Wrapf(err, "failed to send telegram message to chat %d", chatID)
	}
	return nil
}

// Start runs the update loop until the context is cancelled. In webhook
// mode no polling happens and the call just blocks.
func (b *Bot) Start(ctx context.Context, handler *Handler) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return errors.New("telegram bot is already running")
	}
	b.running = true
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.running = false
		b.mu.Unlock()
	}()

	if b.webhookMode {
		b.log.Info("Telegram bot in webhook mode (no polling)")
		<-ctx.Done()
		return nil
	}

	b.log.Info("Starting Telegram bot in polling mode")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.pollTimeout
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			b.log.Info("Telegram bot stopping")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if err := handler.Route(ctx, update); err != nil {
				b.log.Errorf("Failed to handle update %d: %v", update.UpdateID, err)
			}
		}
	}
}
