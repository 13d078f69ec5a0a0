package ai

// ProviderName represents an AI provider identifier
type ProviderName string

// Provider name constants
const (
	ProviderNameGemini ProviderName = "gemini"
	ProviderNameOpenAI ProviderName = "openai"
)

// String returns the string representation of the provider name
func (p ProviderName) String() string {
	return string(p)
}

// IsValid checks if the provider name is supported
func (p ProviderName) IsValid() bool {
	switch p {
	case ProviderNameGemini, ProviderNameOpenAI:
		return true
	default:
		return false
	}
}

// AllProviderNames returns all supported provider names
func AllProviderNames() []ProviderName {
	return []ProviderName{
		ProviderNameGemini,
		ProviderNameOpenAI,
	}
}

// Model name constants
const (
	// Gemini models
	ModelGeminiPro     = "gemini-pro"
	ModelGemini15Pro   = "gemini-1.5-pro"
	ModelGemini15Flash = "gemini-1.5-flash"

	// OpenAI models
	ModelGPT35Turbo = "gpt-3.5-turbo"
	ModelGPT4       = "gpt-4"
	ModelGPT4Turbo  = "gpt-4-turbo-preview"
	ModelGPT4o      = "gpt-4o"
)
