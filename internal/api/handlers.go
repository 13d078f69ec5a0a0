package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"hermes/internal/adapters/ai"
	"hermes/internal/agents"
	"hermes/internal/routing"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

// AssistantHandler exposes the orchestrator over HTTP.
type AssistantHandler struct {
	orchestrator *agents.Orchestrator
	settings     *agents.Settings
	providers    *ai.ProviderRegistry
	tracker      *agents.CostTracker
	log          *logger.Logger
}

// NewAssistantHandler wires the assistant HTTP handlers.
func NewAssistantHandler(
	orchestrator *agents.Orchestrator,
	settings *agents.Settings,
	providers *ai.ProviderRegistry,
	tracker *agents.CostTracker,
) *AssistantHandler {
	return &AssistantHandler{
		orchestrator: orchestrator,
		settings:     settings,
		providers:    providers,
		tracker:      tracker,
		log:          logger.Get().With("component", "api"),
	}
}

// messageRequest is the wire form of a message. SaveToChat defaults to
// true when omitted.
type messageRequest struct {
	Message       string `json:"message"`
	BotType       string `json:"bot_type"`
	ChatID        int64  `json:"chat_id"`
	UserID        int64  `json:"user_id"`
	AgentOverride string `json:"agent_override"`
	SaveToChat    *bool  `json:"save_to_chat"`
}

// HandleMessage processes one conversational message.
// POST /v1/messages
func (h *AssistantHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	botType := routing.BotType(req.BotType)
	if req.Message == "" || !botType.IsValid() {
		writeError(w, http.StatusBadRequest, "message and a valid bot_type are required")
		return
	}

	saveToChat := true
	if req.SaveToChat != nil {
		saveToChat = *req.SaveToChat
	}

	resp := h.orchestrator.ProcessMessage(r.Context(), agents.Request{
		Message:       req.Message,
		BotType:       botType,
		ChatID:        req.ChatID,
		UserID:        req.UserID,
		AgentOverride: req.AgentOverride,
		SaveToChat:    saveToChat,
	})

	writeJSON(w, http.StatusOK, resp)
}

// HandleCostSummary reports the daily or monthly spending breakdown.
// GET /v1/costs/summary?period=daily|monthly
func (h *AssistantHandler) HandleCostSummary(w http.ResponseWriter, r *http.Request) {
	if h.tracker == nil {
		writeError(w, http.StatusServiceUnavailable, "cost tracking is not configured")
		return
	}

	period := r.URL.Query().Get("period")
	if period == "" {
		period = "daily"
	}
	if period != "daily" && period != "monthly" {
		writeError(w, http.StatusBadRequest, "period must be daily or monthly")
		return
	}

	summary, err := h.tracker.Summary(r.Context(), period)
	if err != nil {
		h.log.Errorf("Failed to build cost summary: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to build cost summary")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// HandleCostLimits reports current spend against both limits.
// GET /v1/costs/limits
func (h *AssistantHandler) HandleCostLimits(w http.ResponseWriter, r *http.Request) {
	if h.tracker == nil {
		writeError(w, http.StatusServiceUnavailable, "cost tracking is not configured")
		return
	}

	writeJSON(w, http.StatusOK, h.tracker.CheckLimits(r.Context()))
}

// switchProviderRequest names the provider to switch every agent to.
type switchProviderRequest struct {
	Provider string `json:"provider"`
}

// HandleSwitchProvider rebinds all agents to another registered provider.
// POST /v1/providers/switch
func (h *AssistantHandler) HandleSwitchProvider(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req switchProviderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	provider, err := h.providers.Get(req.Provider)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown provider: "+req.Provider)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.settings.SwitchProvider(provider)
	writeJSON(w, http.StatusOK, map[string]string{
		"provider": h.settings.Provider(),
		"status":   "switched",
	})
}

// HandleProviders lists registered providers and their models.
// GET /v1/providers
func (h *AssistantHandler) HandleProviders(w http.ResponseWriter, r *http.Request) {
	models, err := h.providers.ListModels(r.Context())
	if err != nil {
		h.log.Errorf("Failed to list provider models: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list providers")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"active": h.settings.Provider(),
		"models": models,
	})
}

// HandleConversationSummary summarizes one chat.
// GET /v1/conversations/summary?chat_id=N
func (h *AssistantHandler) HandleConversationSummary(w http.ResponseWriter, r *http.Request) {
	chatID, err := strconv.ParseInt(r.URL.Query().Get("chat_id"), 10, 64)
	if err != nil || chatID <= 0 {
		writeError(w, http.StatusBadRequest, "chat_id must be a positive integer")
		return
	}

	summary, err := h.orchestrator.Summarize(r.Context(), chatID)
	if err != nil {
		h.log.Errorf("Failed to summarize chat %d: %v", chatID, err)
		writeError(w, http.StatusInternalServerError, "failed to summarize conversation")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// HandleSystemMetrics reports provider, agent and spending state.
// GET /v1/system/metrics
func (h *AssistantHandler) HandleSystemMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.orchestrator.SystemMetrics(r.Context()))
}

func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
