package ai

import (
	"context"
	"strings"
	"time"

	"hermes/pkg/errors"
)

// GeminiProvider implements Google Gemini metadata and chat completions.
type GeminiProvider struct {
	apiKey      string
	timeout     time.Duration
	rateLimiter RateLimiter
	models      []ModelInfo
}

// NewGeminiProvider creates a new Gemini provider.
func NewGeminiProvider(apiKey string, timeout time.Duration, limiter RateLimiter) *GeminiProvider {
	if limiter == nil {
		limiter = NewNoOpLimiter()
	}
	return &GeminiProvider{apiKey: apiKey, timeout: timeout, rateLimiter: limiter, models: geminiModels()}
}

// Name returns provider name.
func (p *GeminiProvider) Name() string { return ProviderNameGemini.String() }

// GetModel returns model info by name.
func (p *GeminiProvider) GetModel(_ context.Context, model string) (ModelInfo, error) {
	for _, m := range p.models {
		if strings.EqualFold(m.Name, model) {
			return m, nil
		}
	}
	return ModelInfo{}, errors.Wrapf(errors.ErrUnknownModel, "gemini model %s not found", model)
}

// ListModels lists available models.
func (p *GeminiProvider) ListModels(_ context.Context) ([]ModelInfo, error) {
	return p.models, nil
}

// ModelForAgent maps an agent type to the Gemini model best suited for it.
func (p *GeminiProvider) ModelForAgent(agentType string) string {
	switch agentType {
	case "technical_support":
		return ModelGeminiPro
	case "product_expert":
		return ModelGemini15Pro
	default:
		return ModelGemini15Flash
	}
}

func geminiModels() []ModelInfo {
	return []ModelInfo{
		{
			Provider:        ProviderNameGemini,
			Name:            ModelGeminiPro,
			Family:          "gemini-1.0",
			MaxTokens:       32768,
			InputCostPer1K:  0.0005,
			OutputCostPer1K: 0.0015,
		},
		{
			Provider:        ProviderNameGemini,
			Name:            ModelGemini15Pro,
			Family:          "gemini-1.5",
			MaxTokens:       2000000,
			InputCostPer1K:  0.0025,
			OutputCostPer1K: 0.0075,
			SupportsImages:  true,
		},
		{
			Provider:        ProviderNameGemini,
			Name:            ModelGemini15Flash,
			Family:          "gemini-1.5",
			MaxTokens:       1000000,
			InputCostPer1K:  0.00035,
			OutputCostPer1K: 0.00105,
			SupportsImages:  true,
		},
	}
}
