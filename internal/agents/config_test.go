package agents

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/internal/adapters/ai"
	"hermes/pkg/errors"
)

func geminiProvider() *ai.GeminiProvider {
	return ai.NewGeminiProvider("test-key", 5*time.Second, nil)
}

func openAIProvider() *ai.OpenAIProvider {
	return ai.NewOpenAIProvider("test-key", 5*time.Second, nil)
}

func TestDefaultAgentConfigs(t *testing.T) {
	settings := NewSettings(geminiProvider())

	tests := []struct {
		agentType   AgentType
		name        string
		model       string
		temperature float64
		maxTokens   int
	}{
		{AgentSalesAssistant, "Asistente de Ventas", ai.ModelGemini15Flash, 0.7, 800},
		{AgentTechnicalSupport, "Soporte Técnico", ai.ModelGeminiPro, 0.3, 1200},
		{AgentProductExpert, "Experto en Productos", ai.ModelGemini15Pro, 0.4, 1000},
		{AgentGeneralAssistant, "Asistente General", ai.ModelGemini15Flash, 0.8, 600},
	}

	for _, tt := range tests {
		t.Run(tt.agentType.String(), func(t *testing.T) {
			cfg, err := settings.Config(tt.agentType)
			require.NoError(t, err)

			assert.Equal(t, tt.name, cfg.Name)
			assert.Equal(t, "gemini", cfg.Provider)
			assert.Equal(t, tt.model, cfg.Model)
			assert.Equal(t, tt.temperature, cfg.Temperature)
			assert.Equal(t, tt.maxTokens, cfg.MaxTokens)
			assert.NotEmpty(t, cfg.SystemPrompt)
		})
	}
}

func TestSettingsUnknownAgentType(t *testing.T) {
	settings := NewSettings(geminiProvider())

	_, err := settings.Config(AgentType("fortune_teller"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnknownAgentType))
}

func TestSwitchProvider(t *testing.T) {
	settings := NewSettings(geminiProvider())

	settings.SwitchProvider(openAIProvider())
	assert.Equal(t, "openai", settings.Provider())

	cfg, err := settings.Config(AgentTechnicalSupport)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, ai.ModelGPT4, cfg.Model)

	cfg, err = settings.Config(AgentProductExpert)
	require.NoError(t, err)
	assert.Equal(t, ai.ModelGPT4Turbo, cfg.Model)

	cfg, err = settings.Config(AgentSalesAssistant)
	require.NoError(t, err)
	assert.Equal(t, ai.ModelGPT35Turbo, cfg.Model)

	// Prompts and sampling parameters survive the switch.
	assert.Equal(t, 0.7, cfg.Temperature)
	assert.Equal(t, 800, cfg.MaxTokens)
}

func TestSwitchProviderRoundTrip(t *testing.T) {
	gemini := geminiProvider()
	settings := NewSettings(gemini)
	before := settings.All()

	settings.SwitchProvider(openAIProvider())
	settings.SwitchProvider(gemini)

	after := settings.All()
	require.Equal(t, len(before), len(after))
	for agentType, cfg := range before {
		assert.Equal(t, cfg, after[agentType], "agent %s changed across round trip", agentType)
	}
}

func TestConfigReturnsCopy(t *testing.T) {
	settings := NewSettings(geminiProvider())

	cfg, err := settings.Config(AgentSalesAssistant)
	require.NoError(t, err)
	cfg.Model = "tampered"
	cfg.Temperature = 99

	fresh, err := settings.Config(AgentSalesAssistant)
	require.NoError(t, err)
	assert.Equal(t, ai.ModelGemini15Flash, fresh.Model)
	assert.Equal(t, 0.7, fresh.Temperature)
}
