package agents

import (
	"sync"

	"hermes/internal/adapters/ai"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

// AgentConfig captures runtime settings for an agent instance.
type AgentConfig struct {
	Type        AgentType
	Name        string
	Description string

	// Provider and Model are updated together on a provider switch so a
	// config never points at a model the provider does not serve.
	Provider string
	Model    string

	Temperature  float64
	MaxTokens    int
	SystemPrompt string
}

// defaultAgentConfigs builds the agent roster bound to a provider. The
// model for each agent comes from the provider's own per-agent mapping.
func defaultAgentConfigs(provider ai.Provider) map[AgentType]*AgentConfig {
	name := provider.Name()

	return map[AgentType]*AgentConfig{
		AgentSalesAssistant: {
			Type:        AgentSalesAssistant,
			Name:        "Asistente de Ventas",
			Description: "Agente especializado en ventas y recomendaciones de productos Apple",
			Provider:    name,
			Model:       provider.ModelForAgent(AgentSalesAssistant.String()),
			Temperature: 0.7,
			MaxTokens:   800,
			SystemPrompt: `Eres un experto asistente de ventas de Apple Store. Tu objetivo es:
1. Entender las necesidades del cliente
2. Recomendar productos Apple apropiados
3. Proporcionar información clara sobre especificaciones
4. Ayudar en decisiones de compra
5. Ser amigable, profesional y persuasivo

Siempre considera el presupuesto y casos de uso del cliente.
Usa búsqueda semántica para encontrar productos relevantes.
Mantén un tono conversacional y servicial.`,
		},
		AgentTechnicalSupport: {
			Type:        AgentTechnicalSupport,
			Name:        "Soporte Técnico",
			Description: "Agente especializado en soporte técnico y resolución de problemas",
			Provider:    name,
			Model:       provider.ModelForAgent(AgentTechnicalSupport.String()),
			Temperature: 0.3,
			MaxTokens:   1200,
			SystemPrompt: `Eres un especialista en soporte técnico de Apple. Tu función es:
1. Diagnosticar problemas técnicos
2. Proporcionar soluciones paso a paso
3. Explicar procedimientos técnicos claramente
4. Recomendar configuraciones óptimas
5. Ser paciente y educativo

Usa lenguaje técnico apropiado pero accesible.
Siempre proporciona instrucciones claras y verificables.`,
		},
		AgentProductExpert: {
			Type:        AgentProductExpert,
			Name:        "Experto en Productos",
			Description: "Agente especializado en conocimiento profundo de productos Apple",
			Provider:    name,
			Model:       provider.ModelForAgent(AgentProductExpert.String()),
			Temperature: 0.4,
			MaxTokens:   1000,
			SystemPrompt: `Eres un experto en toda la línea de productos Apple. Tu especialidad es:
1. Conocimiento técnico detallado de especificaciones
2. Comparaciones precisas entre modelos
3. Historial y evolución de productos
4. Características únicas y ventajas competitivas
5. Compatibilidad entre productos del ecosistema Apple

Proporciona información precisa, actualizada y técnicamente correcta.
Usa datos específicos cuando sea posible.`,
		},
		AgentGeneralAssistant: {
			Type:        AgentGeneralAssistant,
			Name:        "Asistente General",
			Description: "Agente de propósito general para consultas diversas",
			Provider:    name,
			Model:       provider.ModelForAgent(AgentGeneralAssistant.String()),
			Temperature: 0.8,
			MaxTokens:   600,
			SystemPrompt: `Eres un asistente general de Apple Store. Tu función es:
1. Responder preguntas generales sobre Apple
2. Proporcionar información sobre servicios
3. Direccionar a especialistas cuando sea necesario
4. Mantener conversaciones amigables
5. Manejar consultas variadas

Sé útil, amigable y eficiente.
Reconoce cuándo derivar a un especialista.`,
		},
	}
}

// Settings holds the live agent configurations. Reads return copies so a
// provider switch never mutates a config an in-flight request is using.
type Settings struct {
	mu       sync.RWMutex
	provider string
	configs  map[AgentType]*AgentConfig
	log      *logger.Logger
}

// NewSettings builds agent settings bound to the given default provider.
func NewSettings(provider ai.Provider) *Settings {
	return &Settings{
		provider: provider.Name(),
		configs:  defaultAgentConfigs(provider),
		log:      logger.Get().With("component", "agent_settings"),
	}
}

// Provider returns the name of the currently active provider.
func (s *Settings) Provider() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.provider
}

// Config returns a snapshot of the configuration for an agent type.
func (s *Settings) Config(agentType AgentType) (AgentConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.configs[agentType]
	if !ok {
		return AgentConfig{}, errors.Wrapf(errors.ErrUnknownAgentType, "agent_type=%s", agentType)
	}

	return *cfg, nil
}

// All returns snapshots of every agent configuration.
func (s *Settings) All() map[AgentType]AgentConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[AgentType]AgentConfig, len(s.configs))
	for t, cfg := range s.configs {
		out[t] = *cfg
	}

	return out
}

// SwitchProvider rebinds every agent to the given provider, replacing the
// provider name and model atomically per agent. Switching to the current
// provider is a no-op round trip.
func (s *Settings) SwitchProvider(provider ai.Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := provider.Name()
	for t, cfg := range s.configs {
		cfg.Provider = name
		cfg.Model = provider.ModelForAgent(t.String())
	}

	s.log.Infof("Switched AI provider: %s -> %s", s.provider, name)
	s.provider = name
}
