package events

import "time"

// Kafka topics for assistant events.
const (
	TopicEscalations = "assistant.escalations"
	TopicUsage       = "assistant.usage"
)

// EscalationEvent is emitted when a conversation is handed off to a human.
type EscalationEvent struct {
	EventID    string    `json:"event_id"`
	ChatID     int64     `json:"chat_id"`
	UserID     int64     `json:"user_id,omitempty"`
	BotType    string    `json:"bot_type"`
	Message    string    `json:"message"`
	Intent     string    `json:"intent"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// UsageEvent mirrors a usage record onto the event bus so downstream
// consumers (billing, dashboards) see agent spend in near real time.
type UsageEvent struct {
	EventID     string    `json:"event_id"`
	ChatID      int64     `json:"chat_id"`
	AgentType   string    `json:"agent_type"`
	Provider    string    `json:"provider"`
	Model       string    `json:"model"`
	TotalTokens uint32    `json:"total_tokens"`
	TotalCost   float64   `json:"total_cost_usd"`
	Success     bool      `json:"success"`
	Timestamp   time.Time `json:"timestamp"`
}
