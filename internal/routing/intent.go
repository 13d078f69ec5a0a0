package routing

// IntentType classifies what a user message is asking for.
type IntentType string

const (
	IntentGreeting         IntentType = "greeting"
	IntentProductInquiry   IntentType = "product_inquiry"
	IntentPriceQuestion    IntentType = "price_question"
	IntentTechnicalSupport IntentType = "technical_support"
	IntentComparison       IntentType = "comparison"
	IntentPurchaseIntent   IntentType = "purchase_intent"
	IntentComplaint        IntentType = "complaint"
	IntentGeneralInfo      IntentType = "general_info"
	IntentGoodbye          IntentType = "goodbye"
	IntentUnknown          IntentType = "unknown"
)

// String returns the string representation of the intent.
func (i IntentType) String() string {
	return string(i)
}

// BotType identifies the channel a message arrived on.
type BotType string

const (
	BotTypeWhatsApp BotType = "whatsapp_bot"
	BotTypeWebChat  BotType = "web_chat_bot"
	BotTypeTelegram BotType = "telegram_bot"
)

// String returns the string representation of the bot type.
func (b BotType) String() string {
	return string(b)
}

// IsValid checks if the bot type is supported.
func (b BotType) IsValid() bool {
	switch b {
	case BotTypeWhatsApp, BotTypeWebChat, BotTypeTelegram:
		return true
	default:
		return false
	}
}

// ResponseType determines how a message should be answered.
type ResponseType string

const (
	ResponseDirect   ResponseType = "direct_response"
	ResponseAgent    ResponseType = "agent_required"
	ResponseEscalate ResponseType = "escalate_to_human"
)

// String returns the string representation of the response type.
func (r ResponseType) String() string {
	return string(r)
}

// IntentResult is the outcome of classifying one message.
type IntentResult struct {
	Intent           IntentType
	Confidence       float64
	DetectedKeywords []string
	SuggestedAgent   string // cleared when a direct response applies
	ResponseType     ResponseType
}
