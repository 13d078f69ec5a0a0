package ai

import (
	"strings"

	"hermes/internal/adapters/config"
	"hermes/pkg/errors"
)

// BuildRegistry initializes a ProviderRegistry with all providers that have
// API keys configured. At least one provider must be available.
func BuildRegistry(cfg config.AIConfig) (*ProviderRegistry, error) {
	registry := NewProviderRegistry()

	limitCfg := RateLimitConfig{
		Enabled:      cfg.RateLimitEnabled,
		ReqPerMinute: cfg.ReqPerMinute,
		Burst:        cfg.Burst,
	}

	if cfg.GeminiKey != "" {
		limiter := NewRateLimiter(ProviderNameGemini, limitCfg)
		if err := registry.Register(NewGeminiProvider(cfg.GeminiKey, cfg.RequestTimeout, limiter)); err != nil {
			return nil, err
		}
	}

	if cfg.OpenAIKey != "" {
		limiter := NewRateLimiter(ProviderNameOpenAI, limitCfg)
		if err := registry.Register(NewOpenAIProvider(cfg.OpenAIKey, cfg.RequestTimeout, limiter)); err != nil {
			return nil, err
		}
	}

	if len(registry.List()) == 0 {
		return nil, errors.Wrap(errors.ErrUnavailable, "no AI providers configured")
	}

	if !registry.Has(cfg.DefaultProvider) {
		return nil, errors.Wrapf(errors.ErrInvalidInput,
			"default provider %s has no API key configured", cfg.DefaultProvider)
	}

	return registry, nil
}

// NormalizeProviderName makes provider lookup more forgiving.
func NormalizeProviderName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
