package usage

import "time"

// Record captures one agent invocation's token and cost accounting.
// Records are immutable once created: cost figures reflect the rates in
// effect at invocation time and are never repriced.
type Record struct {
	Timestamp time.Time `ch:"timestamp"`
	EventID   string    `ch:"event_id"`

	// Conversation context
	ChatID int64 `ch:"chat_id"`
	UserID int64 `ch:"user_id"`

	// Agent and model
	AgentType string `ch:"agent_type"`
	Provider  string `ch:"provider"`
	Model     string `ch:"model"`

	// Token usage
	InputTokens  uint32 `ch:"input_tokens"`
	OutputTokens uint32 `ch:"output_tokens"`
	TotalTokens  uint32 `ch:"total_tokens"`

	// Cost in USD
	InputCost  float64 `ch:"input_cost_usd"`
	OutputCost float64 `ch:"output_cost_usd"`
	TotalCost  float64 `ch:"total_cost_usd"`

	// TokensEstimated marks records whose token counts came from the
	// length heuristic rather than provider-reported usage.
	TokensEstimated bool `ch:"tokens_estimated"`

	// Outcome
	LatencyMs uint32 `ch:"latency_ms"`
	Success   bool   `ch:"success"`
	Error     string `ch:"error"`
}
