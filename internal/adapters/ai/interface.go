package ai

import "context"

// Provider defines the contract each AI provider implementation must satisfy.
type Provider interface {
	Name() string

	// GetModel returns metadata for a specific model.
	GetModel(ctx context.Context, model string) (ModelInfo, error)

	// ListModels returns the list of available models for the provider.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// ModelForAgent returns the model this provider assigns to an agent type.
	// Unknown agent types fall back to the provider's default model.
	ModelForAgent(agentType string) string
}

// ModelInfo describes the capabilities and pricing of a model.
type ModelInfo struct {
	Provider        ProviderName // Owning provider
	Name            string       // Provider-specific model identifier
	Family          string       // Family/category name (e.g., "gemini-1.5")
	MaxTokens       int          // Maximum context length
	InputCostPer1K  float64      // USD per 1K input tokens
	OutputCostPer1K float64      // USD per 1K output tokens
	SupportsImages  bool         // Whether the model accepts image inputs
}
