package agents

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"hermes/internal/domain/chat"
	"hermes/internal/domain/product"
	"hermes/internal/domain/usage"
	"hermes/internal/events"
	"hermes/internal/metrics"
	"hermes/internal/routing"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

// orchestratorFallbackResponse is the top-level apology when processing
// itself fails before any agent produced a reply.
const orchestratorFallbackResponse = "Disculpa, estoy experimentando dificultades técnicas. " +
	"¿Podrías intentar de nuevo?"

// budgetFallbackResponse answers a message whose paid agent call was
// refused by the enforce cost policy. The conversation is handed to a
// human instead of silently failing.
const budgetFallbackResponse = "En este momento no puedo procesar tu consulta automáticamente. " +
	"Un miembro de nuestro equipo continuará la conversación en breve."

// conversationActiveWindow is how recently the last message must have
// arrived for a conversation to count as active.
const conversationActiveWindow = time.Hour

// Orchestrator drives a message through intent routing, direct responses,
// agent processing or human escalation, then persists the exchange.
type Orchestrator struct {
	detector  *routing.Detector
	nodes     *NodeRegistry
	settings  *Settings
	tracker   *CostTracker
	guard     *CostGuard
	chats     chat.Repository
	archive   usage.Repository
	publisher *events.Publisher
	deadline  time.Duration
	log       *logger.Logger

	// rand.Rand is not safe for concurrent use.
	rngMu sync.Mutex
	rng   *rand.Rand
}

// OrchestratorDeps bundles the orchestrator's collaborators. Chats,
// archive, publisher, tracker and guard are optional; missing ones
// degrade the matching side effects.
type OrchestratorDeps struct {
	Detector  *routing.Detector
	Nodes     *NodeRegistry
	Settings  *Settings
	Tracker   *CostTracker
	Guard     *CostGuard
	Chats     chat.Repository
	Archive   usage.Repository
	Publisher *events.Publisher

	// Deadline bounds end-to-end processing of one message. Zero
	// disables the per-message timeout.
	Deadline time.Duration

	// Rand seeds direct-response template selection; nil uses a
	// time-seeded source.
	Rand *rand.Rand
}

// NewOrchestrator wires an orchestrator from its dependencies.
func NewOrchestrator(deps OrchestratorDeps) (*Orchestrator, error) {
	if deps.Detector == nil || deps.Nodes == nil || deps.Settings == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "detector, nodes and settings are required")
	}

	rng := deps.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &Orchestrator{
		detector:  deps.Detector,
		nodes:     deps.Nodes,
		settings:  deps.Settings,
		tracker:   deps.Tracker,
		guard:     deps.Guard,
		chats:     deps.Chats,
		archive:   deps.Archive,
		publisher: deps.Publisher,
		deadline:  deps.Deadline,
		rng:       rng,
		log:       logger.Get().With("component", "orchestrator"),
	}, nil
}

// Request is one inbound message to process.
type Request struct {
	Message       string          `json:"message"`
	BotType       routing.BotType `json:"bot_type"`
	ChatID        int64           `json:"chat_id"`
	UserID        int64           `json:"user_id,omitempty"`
	AgentOverride string          `json:"agent_override,omitempty"`
	SaveToChat    bool            `json:"save_to_chat"`
}

// Response is the full processing outcome for one message.
type Response struct {
	ChatID  int64  `json:"chat_id"`
	UserID  int64  `json:"user_id,omitempty"`
	BotType string `json:"bot_type"`
	Message string `json:"message"`

	Intent           string   `json:"intent"`
	Confidence       float64  `json:"confidence"`
	DetectedKeywords []string `json:"detected_keywords"`
	ResponseType     string   `json:"response_type"`

	Response            string   `json:"response"`
	FollowupSuggestions []string `json:"followup_suggestions,omitempty"`

	AgentUsed     string          `json:"agent_used,omitempty"`
	RequiresAgent bool            `json:"requires_agent"`
	ModelUsed     string          `json:"model_used,omitempty"`
	Products      []product.Match `json:"products,omitempty"`
	ContextUsed   bool            `json:"context_used"`

	Escalated bool `json:"escalated_to_human,omitempty"`

	Cost             float64         `json:"cost"`
	CostLimits       *LimitsSnapshot `json:"cost_limits,omitempty"`
	CostLimitWarning bool            `json:"cost_limit_warning,omitempty"`

	Success        bool          `json:"success"`
	Error          string        `json:"error,omitempty"`
	Warnings       []string      `json:"warnings,omitempty"`
	ProcessingTime time.Duration `json:"-"`
	ProcessingSecs float64       `json:"total_processing_time"`
	Timestamp      time.Time     `json:"timestamp"`
}

// ProcessMessage runs the full routing state machine for one message.
// It always returns a well-formed response; failures surface as an
// apology with Success=false rather than an error.
func (o *Orchestrator) ProcessMessage(ctx context.Context, req Request) *Response {
	start := time.Now()

	if o.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.deadline)
		defer cancel()
	}

	resp := &Response{
		ChatID:    req.ChatID,
		UserID:    req.UserID,
		BotType:   req.BotType.String(),
		Message:   req.Message,
		Success:   true,
		Timestamp: start,
	}

	if req.Message == "" || !req.BotType.IsValid() {
		resp.Success = false
		resp.Error = errors.Wrap(errors.ErrInvalidInput, "message and a valid bot_type are required").Error()
		resp.Response = orchestratorFallbackResponse
		o.finish(resp, start)
		return resp
	}

	result := o.detector.DetectIntent(req.Message)
	resp.Intent = result.Intent.String()
	resp.Confidence = result.Confidence
	resp.DetectedKeywords = result.DetectedKeywords
	resp.ResponseType = result.ResponseType.String()

	metrics.MessagesRouted.WithLabelValues(resp.BotType, resp.Intent, resp.ResponseType).Inc()
	metrics.IntentConfidence.WithLabelValues(resp.Intent).Observe(result.Confidence)

	o.log.Infof("Intent detected: %s (confidence: %.2f)", resp.Intent, resp.Confidence)

	switch result.ResponseType {
	case routing.ResponseDirect:
		o.respondDirect(resp, result)
	case routing.ResponseEscalate:
		o.escalate(ctx, resp, req, result)
	default:
		o.respondWithAgent(ctx, resp, req, result)
	}

	if req.SaveToChat {
		o.persistExchange(ctx, resp, req)
	}

	if o.tracker != nil {
		limits := o.tracker.CheckLimits(ctx)
		resp.CostLimits = &limits
		if limits.Daily.Exceeded || limits.Monthly.Exceeded {
			resp.CostLimitWarning = true
			o.log.Warnf("Cost limit exceeded: daily $%.2f/$%.2f, monthly $%.2f/$%.2f",
				limits.Daily.Current, limits.Daily.Limit,
				limits.Monthly.Current, limits.Monthly.Limit)
		}
	}

	o.finish(resp, start)
	o.log.Infof("Message processed in %.2fs", resp.ProcessingSecs)
	return resp
}

func (o *Orchestrator) finish(resp *Response, start time.Time) {
	resp.ProcessingTime = time.Since(start)
	resp.ProcessingSecs = resp.ProcessingTime.Seconds()
}

func (o *Orchestrator) respondDirect(resp *Response, result routing.IntentResult) {
	dr, ok := o.detector.DirectResponse(result.Intent)
	if !ok {
		// Direct routing without a template means misconfiguration.
		resp.Success = false
		resp.Error = errors.Wrapf(errors.ErrInternal, "no direct response for intent %s", result.Intent).Error()
		resp.Response = orchestratorFallbackResponse
		return
	}

	o.rngMu.Lock()
	resp.Response = dr.Pick(o.rng)
	o.rngMu.Unlock()

	resp.FollowupSuggestions = dr.FollowupSuggestions
	resp.RequiresAgent = false
}

func (o *Orchestrator) escalate(ctx context.Context, resp *Response, req Request, result routing.IntentResult) {
	resp.Response = routing.EscalationMessage
	resp.Escalated = true
	resp.RequiresAgent = false

	metrics.Escalations.WithLabelValues(resp.BotType).Inc()
	o.log.Infof("Escalating chat %d to human (intent: %s)", req.ChatID, resp.Intent)

	if o.publisher != nil {
		event := events.EscalationEvent{
			EventID:    uuid.NewString(),
			ChatID:     req.ChatID,
			UserID:     req.UserID,
			BotType:    resp.BotType,
			Message:    req.Message,
			Intent:     resp.Intent,
			Confidence: resp.Confidence,
			Timestamp:  time.Now(),
		}
		if err := o.publisher.PublishEscalation(ctx, event); err != nil {
			o.log.Errorf("Failed to publish escalation event: %v", err)
			resp.Warnings = append(resp.Warnings, "escalation event not published")
		}
	}
}

func (o *Orchestrator) respondWithAgent(ctx context.Context, resp *Response, req Request, result routing.IntentResult) {
	resp.RequiresAgent = true

	if o.guard != nil {
		if err := o.guard.CheckBudget(ctx); err != nil {
			// Budget refusal is a deliberate outcome, not a failure:
			// hand the conversation to a human at zero cost.
			o.log.Warnf("Paid agent call refused for chat %d: %v", req.ChatID, err)
			resp.Response = budgetFallbackResponse
			resp.Escalated = true
			resp.Error = err.Error()
			o.escalateForBudget(ctx, resp, req)
			return
		}
	}

	agentName := result.SuggestedAgent
	if req.AgentOverride != "" {
		agentName = req.AgentOverride
	}
	if agentName == "" {
		agentName = routing.FallbackAgent
	}

	agentType := AgentType(agentName)
	if !agentType.IsValid() {
		o.log.Warnf("Unknown agent %q requested, using fallback", agentName)
		agentType = AgentGeneralAssistant
	}

	node, err := o.nodes.Node(agentType)
	if err != nil {
		resp.Success = false
		resp.Error = err.Error()
		resp.Response = orchestratorFallbackResponse
		return
	}

	var history []chat.Message
	if o.chats != nil {
		history, err = o.chats.Recent(ctx, req.ChatID, historyWindow)
		if err != nil {
			o.log.Warnf("Failed to load history for chat %d: %v", req.ChatID, err)
			resp.Warnings = append(resp.Warnings, "conversation history unavailable")
		}
	}

	processResult, err := node.Process(ctx, ProcessRequest{
		Message:              req.Message,
		ChatID:               req.ChatID,
		UserID:               req.UserID,
		IncludeProductSearch: true,
		History:              history,
	})
	if err != nil {
		resp.Success = false
		resp.Error = err.Error()
		resp.Response = orchestratorFallbackResponse
		return
	}

	resp.Response = processResult.Response
	resp.AgentUsed = agentType.String()
	resp.ModelUsed = processResult.Model
	resp.Products = processResult.Products
	resp.ContextUsed = processResult.ContextUsed || len(history) > 0
	resp.Cost = processResult.Cost
	resp.Success = processResult.Success
	resp.Error = processResult.ErrorMessage
}

func (o *Orchestrator) escalateForBudget(ctx context.Context, resp *Response, req Request) {
	metrics.Escalations.WithLabelValues(resp.BotType).Inc()
	if o.publisher == nil {
		return
	}

	event := events.EscalationEvent{
		EventID:    uuid.NewString(),
		ChatID:     req.ChatID,
		UserID:     req.UserID,
		BotType:    resp.BotType,
		Message:    req.Message,
		Intent:     resp.Intent,
		Confidence: resp.Confidence,
		Timestamp:  time.Now(),
	}
	if err := o.publisher.PublishEscalation(ctx, event); err != nil {
		o.log.Errorf("Failed to publish budget escalation event: %v", err)
		resp.Warnings = append(resp.Warnings, "escalation event not published")
	}
}

// persistExchange appends the user message and the reply to the chat log.
// Persistence failures never fail the response; they surface as warnings.
func (o *Orchestrator) persistExchange(ctx context.Context, resp *Response, req Request) {
	if o.chats == nil {
		return
	}

	userMsg := &chat.Message{ChatID: req.ChatID, Sender: chat.SenderUser, Body: req.Message}
	if err := o.chats.Append(ctx, userMsg); err != nil {
		o.log.Warnf("Failed to save user message for chat %d: %v", req.ChatID, err)
		resp.Warnings = append(resp.Warnings, "user message not saved")
	}

	botMsg := &chat.Message{ChatID: req.ChatID, Sender: chat.SenderBot, Body: resp.Response}
	if err := o.chats.Append(ctx, botMsg); err != nil {
		o.log.Warnf("Failed to save bot message for chat %d: %v", req.ChatID, err)
		resp.Warnings = append(resp.Warnings, "bot message not saved")
	}
}

// ConversationSummary describes one chat's activity.
type ConversationSummary struct {
	ChatID       int64      `json:"chat_id"`
	MessageCount int        `json:"message_count"`
	UserMessages int        `json:"user_messages"`
	BotMessages  int        `json:"bot_messages"`
	AgentsUsed   []string   `json:"agents_used,omitempty"`
	TotalCost    float64    `json:"total_cost"`
	FirstMessage *time.Time `json:"first_message,omitempty"`
	LastMessage  *time.Time `json:"last_message,omitempty"`
	Active       bool       `json:"conversation_active"`
	Transcript   string     `json:"transcript,omitempty"`
}

// summaryHistoryLimit bounds how far back a summary looks.
const summaryHistoryLimit = 200

// Summarize builds a summary of one conversation from the message log and
// the usage archive.
func (o *Orchestrator) Summarize(ctx context.Context, chatID int64) (*ConversationSummary, error) {
	if o.chats == nil {
		return nil, errors.Wrap(errors.ErrUnavailable, "chat repository not configured")
	}

	messages, err := o.chats.Recent(ctx, chatID, summaryHistoryLimit)
	if err != nil {
		return nil, errors.Wrapf(err, "load messages for chat %d", chatID)
	}

	summary := &ConversationSummary{ChatID: chatID, MessageCount: len(messages)}
	for _, msg := range messages {
		switch msg.Sender {
		case chat.SenderUser:
			summary.UserMessages++
		case chat.SenderBot:
			summary.BotMessages++
		}
	}

	if len(messages) > 0 {
		first := messages[0].CreatedAt
		last := messages[len(messages)-1].CreatedAt
		summary.FirstMessage = &first
		summary.LastMessage = &last
		summary.Active = time.Since(last) < conversationActiveWindow
		summary.Transcript = chat.FormatHistory(messages, historyWindow)
	}

	if o.archive != nil {
		stats, err := o.archive.ChatStats(ctx, chatID)
		if err != nil {
			o.log.Warnf("Failed to load usage stats for chat %d: %v", chatID, err)
		} else {
			summary.AgentsUsed = stats.AgentTypes
			summary.TotalCost = stats.TotalCost
		}
	}

	return summary, nil
}

// AgentStatus reports one agent's availability and configuration.
type AgentStatus struct {
	Loaded bool        `json:"loaded"`
	Config AgentConfig `json:"config"`
}

// SystemStatus aggregates system-wide state for the metrics endpoint.
type SystemStatus struct {
	Provider     string                 `json:"ai_provider"`
	CostPolicy   string                 `json:"cost_policy,omitempty"`
	Agents       map[string]AgentStatus `json:"agent_status"`
	DailyCosts   *CostSummary           `json:"daily_costs,omitempty"`
	MonthlyCosts *CostSummary           `json:"monthly_costs,omitempty"`
	CostLimits   *LimitsSnapshot        `json:"cost_limits,omitempty"`
	Health       string                 `json:"system_health"`
	Timestamp    time.Time              `json:"timestamp"`
}

// SystemMetrics gathers provider, agent and spending state in one snapshot.
func (o *Orchestrator) SystemMetrics(ctx context.Context) *SystemStatus {
	status := &SystemStatus{
		Provider:  o.settings.Provider(),
		Agents:    make(map[string]AgentStatus),
		Health:    "healthy",
		Timestamp: time.Now(),
	}

	loaded := o.nodes.Loaded()
	for agentType, cfg := range o.settings.All() {
		status.Agents[agentType.String()] = AgentStatus{
			Loaded: loaded[agentType],
			Config: cfg,
		}
	}

	if o.guard != nil {
		status.CostPolicy = o.guard.Policy()
	}

	if o.tracker != nil {
		if daily, err := o.tracker.Summary(ctx, "daily"); err == nil {
			status.DailyCosts = daily
		} else {
			o.log.Errorf("Failed to build daily cost summary: %v", err)
			status.Health = "degraded"
		}
		if monthly, err := o.tracker.Summary(ctx, "monthly"); err == nil {
			status.MonthlyCosts = monthly
		} else {
			o.log.Errorf("Failed to build monthly cost summary: %v", err)
			status.Health = "degraded"
		}
		limits := o.tracker.CheckLimits(ctx)
		status.CostLimits = &limits
	}

	return status
}
