package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"hermes/internal/api/health"
	telegramapi "hermes/internal/api/telegram"
	"hermes/internal/metrics"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

// ServerConfig contains configuration for HTTP server
type ServerConfig struct {
	Port            int
	ServiceName     string
	Version         string
	TelegramWebhook *telegramapi.WebhookHandler // Optional Telegram webhook handler
}

// Server wraps HTTP server with lifecycle management
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer creates and configures HTTP server with all routes
func NewServer(cfg ServerConfig, healthHandler *health.Handler, assistant *AssistantHandler, log *logger.Logger) *Server {
	mux := http.NewServeMux()

	// Health check endpoints (Kubernetes probes)
	mux.HandleFunc("/health", healthHandler.HandleHealth)
	mux.HandleFunc("/ready", healthHandler.HandleReadiness)
	mux.HandleFunc("/live", healthHandler.HandleLiveness)

	// Prometheus metrics endpoint
	mux.Handle("/metrics", metrics.Handler())

	// Assistant endpoints
	mux.HandleFunc("/v1/messages", assistant.HandleMessage)
	mux.HandleFunc("/v1/costs/summary", assistant.HandleCostSummary)
	mux.HandleFunc("/v1/costs/limits", assistant.HandleCostLimits)
	mux.HandleFunc("/v1/providers", assistant.HandleProviders)
	mux.HandleFunc("/v1/providers/switch", assistant.HandleSwitchProvider)
	mux.HandleFunc("/v1/conversations/summary", assistant.HandleConversationSummary)
	mux.HandleFunc("/v1/system/metrics", assistant.HandleSystemMetrics)

	// Telegram webhook endpoint (if configured)
	if cfg.TelegramWebhook != nil {
		mux.HandleFunc("/telegram/webhook", cfg.TelegramWebhook.ServeHTTP)
		mux.HandleFunc("/telegram/health", cfg.TelegramWebhook.HealthCheck)
		log.Info("✓ Telegram webhook registered at /telegram/webhook")
	}

	// Root endpoint (service info)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"service":"%s","version":"%s","status":"running"}`,
			cfg.ServiceName, cfg.Version)
	})

	port := 8080
	if cfg.Port > 0 {
		port = cfg.Port
	}

	log.Infof("HTTP server configured on port %d", port)

	// WriteTimeout must outlive the message deadline: agent calls can
	// take tens of seconds before the response is written.
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		log:        log,
	}
}

// Start begins listening for HTTP requests
// Blocks until server is stopped or encounters an error
func (s *Server) Start() error {
	s.log.Infof("Starting HTTP server on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "http server failed")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
// Waits for active connections to complete within timeout
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Stopping HTTP server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "http server shutdown failed")
	}

	s.log.Info("✓ HTTP server stopped")
	return nil
}
