package agents

import (
	"context"
	"strings"
	"time"

	"hermes/internal/adapters/ai"
	"hermes/internal/adapters/config"
	"hermes/internal/domain/chat"
	"hermes/internal/domain/product"
	"hermes/internal/metrics"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

// nodeFallbackResponse is returned when the provider cannot be reached
// after all retries.
const nodeFallbackResponse = "Disculpa, estoy experimentando dificultades técnicas. " +
	"¿Podrías reformular tu pregunta?"

// historyWindow caps replayed context at the last five exchanges
// (ten messages).
const historyWindow = 10

// productContextTop caps how many search hits go into the prompt.
const productContextTop = 3

// Node executes one agent type: it grounds the prompt with catalog search
// results and conversation history, calls the configured provider, and
// accounts for every invocation whether it succeeded or not.
type Node struct {
	agentType AgentType
	settings  *Settings
	providers *ai.ProviderRegistry
	searcher  product.Searcher
	tracker   *CostTracker
	aiCfg     config.AIConfig
	searchCfg config.SearchConfig
	log       *logger.Logger
}

// NewNode creates an agent node. Searcher and tracker are optional: a nil
// searcher disables product grounding, a nil tracker disables accounting.
func NewNode(
	agentType AgentType,
	settings *Settings,
	providers *ai.ProviderRegistry,
	searcher product.Searcher,
	tracker *CostTracker,
	aiCfg config.AIConfig,
	searchCfg config.SearchConfig,
) (*Node, error) {
	if !agentType.IsValid() {
		return nil, errors.Wrapf(errors.ErrUnknownAgentType, "agent_type=%s", agentType)
	}
	if settings == nil || providers == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "settings and providers are required")
	}

	return &Node{
		agentType: agentType,
		settings:  settings,
		providers: providers,
		searcher:  searcher,
		tracker:   tracker,
		aiCfg:     aiCfg,
		searchCfg: searchCfg,
		log:       logger.Get().With("agent", agentType.String()),
	}, nil
}

// Type returns the agent type this node serves.
func (n *Node) Type() AgentType {
	return n.agentType
}

// ProcessRequest is one message for an agent to answer.
type ProcessRequest struct {
	Message string
	ChatID  int64
	UserID  int64

	// IncludeProductSearch grounds the reply with catalog hits.
	IncludeProductSearch bool

	// History holds prior chat messages ascending by time.
	History []chat.Message
}

// ProcessResult is the agent's answer plus telemetry.
type ProcessResult struct {
	Response    string
	Products    []product.Match
	ContextUsed bool

	AgentType AgentType
	AgentName string
	Provider  string
	Model     string

	Cost        float64
	TotalTokens uint32
	Latency     time.Duration

	Success      bool
	ErrorMessage string

	// Per-agent enrichments.
	HelpResources         []string
	SpecialistSuggestions []string
	ComparisonAvailable   bool
}

// Process answers one message. Provider failures after retries produce a
// fallback apology with Success=false rather than an error: the
// conversation must always get a reply.
func (n *Node) Process(ctx context.Context, req ProcessRequest) (*ProcessResult, error) {
	start := time.Now()

	cfg, err := n.settings.Config(n.agentType)
	if err != nil {
		return nil, err
	}

	provider, err := n.providers.Get(cfg.Provider)
	if err != nil {
		return nil, errors.Wrapf(err, "provider for agent %s", n.agentType)
	}

	modelInfo, err := provider.GetModel(ctx, cfg.Model)
	if err != nil {
		// Unknown pricing should not block the call, only zero the cost.
		n.log.Warnf("Model %q not in provider catalog: %v", cfg.Model, err)
		modelInfo = ai.ModelInfo{Provider: ai.ProviderName(cfg.Provider), Name: cfg.Model}
	}

	var products []product.Match
	excerpt := ""
	if req.IncludeProductSearch && n.searcher != nil {
		products = n.searchProducts(ctx, req.Message)
		if len(products) > 0 {
			excerpt = product.FormatExcerpt(products, productContextTop)
		}
	}

	userContent := req.Message
	if excerpt != "" {
		userContent = excerpt + "\n\n" + req.Message
	}

	chatReq := ai.ChatRequest{
		Model:        cfg.Model,
		SystemPrompt: cfg.SystemPrompt,
		Messages:     append(historyMessages(req.History), ai.Message{Role: ai.RoleUser, Content: userContent}),
		Temperature:  cfg.Temperature,
		MaxTokens:    cfg.MaxTokens,
	}

	resp, chatErr := n.chatWithRetry(ctx, provider, chatReq)
	latency := time.Since(start)

	result := &ProcessResult{
		Products:    products,
		ContextUsed: excerpt != "",
		AgentType:   n.agentType,
		AgentName:   cfg.Name,
		Provider:    cfg.Provider,
		Model:       cfg.Model,
		Latency:     latency,
	}

	inv := Invocation{
		AgentType: n.agentType.String(),
		Model:     modelInfo,
		ChatID:    req.ChatID,
		UserID:    req.UserID,
		InputText: cfg.SystemPrompt + "\n" + userContent,
		Latency:   latency,
	}

	if chatErr != nil {
		n.log.Errorf("Agent %s failed: %v", n.agentType, chatErr)
		result.Response = nodeFallbackResponse
		result.Success = false
		result.ErrorMessage = chatErr.Error()

		inv.Success = false
		inv.ErrorMessage = chatErr.Error()
		n.record(ctx, inv, result)
		metrics.AgentCalls.WithLabelValues(n.agentType.String(), cfg.Model, "error").Inc()
		metrics.AgentLatency.WithLabelValues(n.agentType.String(), cfg.Model).Observe(latency.Seconds())
		return result, nil
	}

	result.Response = resp.Text
	result.Success = true
	n.enrich(result, req.Message)

	inv.OutputText = resp.Text
	inv.Usage = resp.Usage
	inv.Success = true
	n.record(ctx, inv, result)
	metrics.AgentCalls.WithLabelValues(n.agentType.String(), cfg.Model, "success").Inc()
	metrics.AgentLatency.WithLabelValues(n.agentType.String(), cfg.Model).Observe(latency.Seconds())

	return result, nil
}

func (n *Node) record(ctx context.Context, inv Invocation, result *ProcessResult) {
	if n.tracker == nil {
		return
	}
	rec := n.tracker.Track(ctx, inv)
	result.Cost = rec.TotalCost
	result.TotalTokens = rec.TotalTokens
}

func (n *Node) searchProducts(ctx context.Context, query string) []product.Match {
	limit := n.searchCfg.Limit
	if limit <= 0 {
		limit = 5
	}

	matches, err := n.searcher.Search(ctx, query, limit, n.searchCfg.ScoreThreshold)
	if err != nil {
		n.log.Warnf("Product search failed: %v", err)
		metrics.ProductSearches.WithLabelValues(n.searchCfg.Backend, "error").Inc()
		return nil
	}

	metrics.ProductSearches.WithLabelValues(n.searchCfg.Backend, "success").Inc()
	return matches
}

// chatWithRetry retries transient provider failures with doubling backoff.
// Auth and validation errors fail immediately.
func (n *Node) chatWithRetry(ctx context.Context, provider ai.ChatProvider, req ai.ChatRequest) (*ai.ChatResponse, error) {
	attempts := n.aiCfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := n.aiCfg.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := provider.Chat(ctx, req)
		if err == nil {
			metrics.ProviderCalls.WithLabelValues(provider.Name(), "success").Inc()
			return resp, nil
		}
		lastErr = err
		metrics.ProviderCalls.WithLabelValues(provider.Name(), providerCallStatus(err)).Inc()

		if !isTransient(err) || attempt == attempts {
			break
		}

		n.log.Warnf("Provider call failed (attempt %d/%d), retrying in %s: %v",
			attempt, attempts, backoff, err)

		select {
		case <-ctx.Done():
			return nil, errors.Wrap(errors.ErrTimeout, "context cancelled during retry")
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return nil, lastErr
}

func providerCallStatus(err error) string {
	if errors.Is(err, errors.ErrRateLimitExceeded) {
		return "rate_limited"
	}
	return "error"
}

func isTransient(err error) bool {
	return errors.Is(err, errors.ErrProviderUnavailable) ||
		errors.Is(err, errors.ErrRateLimitExceeded) ||
		errors.Is(err, errors.ErrTimeout)
}

// historyMessages maps stored chat messages to provider chat turns.
// System notices are not replayed.
func historyMessages(history []chat.Message) []ai.Message {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	out := make([]ai.Message, 0, len(history))
	for _, msg := range history {
		switch msg.Sender {
		case chat.SenderUser:
			out = append(out, ai.Message{Role: ai.RoleUser, Content: msg.Body})
		case chat.SenderBot:
			out = append(out, ai.Message{Role: ai.RoleAssistant, Content: msg.Body})
		}
	}
	return out
}

// enrich layers agent-specific additions on a successful reply.
func (n *Node) enrich(result *ProcessResult, message string) {
	switch n.agentType {
	case AgentSalesAssistant:
		if len(result.Products) > 0 {
			result.Response += "\n\n¿Te gustaría conocer más detalles sobre alguno de estos " +
				"productos o prefieres que te ayude a comparar opciones?"
		}
	case AgentTechnicalSupport:
		result.HelpResources = []string{
			"📞 Soporte telefónico: 800-APL-CARE",
			"💬 Chat en vivo disponible 24/7",
			"📖 Consulta nuestra base de conocimientos",
			"🔧 Programa una cita en Apple Store",
		}
	case AgentProductExpert:
		if len(result.Products) > 1 {
			result.ComparisonAvailable = true
			result.Response += "\n\n¿Te gustaría que haga una comparación detallada entre estos modelos?"
		}
	case AgentGeneralAssistant:
		result.SpecialistSuggestions = specialistSuggestions(message)
	}
}

func specialistSuggestions(message string) []string {
	lower := strings.ToLower(message)

	var suggestions []string
	if containsAny(lower, "problema", "error", "no funciona", "ayuda técnica") {
		suggestions = append(suggestions, "🔧 Especialista en Soporte Técnico")
	}
	if containsAny(lower, "comprar", "precio", "recomendar", "mejor opción") {
		suggestions = append(suggestions, "💼 Especialista en Ventas")
	}
	if containsAny(lower, "especificaciones", "comparar", "diferencias") {
		suggestions = append(suggestions, "🎯 Experto en Productos")
	}
	return suggestions
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
