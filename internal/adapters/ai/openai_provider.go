package ai

import (
	"context"
	"strings"
	"time"

	"hermes/pkg/errors"
)

// OpenAIProvider implements OpenAI metadata and chat completions.
type OpenAIProvider struct {
	apiKey      string
	timeout     time.Duration
	rateLimiter RateLimiter
	models      []ModelInfo
}

// NewOpenAIProvider creates a new OpenAI provider instance.
func NewOpenAIProvider(apiKey string, timeout time.Duration, limiter RateLimiter) *OpenAIProvider {
	if limiter == nil {
		limiter = NewNoOpLimiter()
	}
	return &OpenAIProvider{apiKey: apiKey, timeout: timeout, rateLimiter: limiter, models: openAIModels()}
}

// Name returns provider name.
func (p *OpenAIProvider) Name() string { return ProviderNameOpenAI.String() }

// GetModel returns model info by name.
func (p *OpenAIProvider) GetModel(_ context.Context, model string) (ModelInfo, error) {
	for _, m := range p.models {
		if strings.EqualFold(m.Name, model) {
			return m, nil
		}
	}
	return ModelInfo{}, errors.Wrapf(errors.ErrUnknownModel, "openai model %s not found", model)
}

// ListModels lists available models.
func (p *OpenAIProvider) ListModels(_ context.Context) ([]ModelInfo, error) {
	return p.models, nil
}

// ModelForAgent maps an agent type to the OpenAI model best suited for it.
// Support and expert agents get the stronger models; everything else runs
// on the cheap default.
func (p *OpenAIProvider) ModelForAgent(agentType string) string {
	switch agentType {
	case "technical_support":
		return ModelGPT4
	case "product_expert":
		return ModelGPT4Turbo
	default:
		return ModelGPT35Turbo
	}
}

func openAIModels() []ModelInfo {
	return []ModelInfo{
		{
			Provider:        ProviderNameOpenAI,
			Name:            ModelGPT35Turbo,
			Family:          "gpt-3.5",
			MaxTokens:       16385,
			InputCostPer1K:  0.0005,
			OutputCostPer1K: 0.0015,
		},
		{
			Provider:        ProviderNameOpenAI,
			Name:            ModelGPT4,
			Family:          "gpt-4",
			MaxTokens:       8192,
			InputCostPer1K:  0.03,
			OutputCostPer1K: 0.06,
		},
		{
			Provider:        ProviderNameOpenAI,
			Name:            ModelGPT4Turbo,
			Family:          "gpt-4",
			MaxTokens:       128000,
			InputCostPer1K:  0.01,
			OutputCostPer1K: 0.03,
		},
		{
			Provider:        ProviderNameOpenAI,
			Name:            ModelGPT4o,
			Family:          "gpt-4o",
			MaxTokens:       128000,
			InputCostPer1K:  0.005,
			OutputCostPer1K: 0.015,
			SupportsImages:  true,
		},
	}
}
