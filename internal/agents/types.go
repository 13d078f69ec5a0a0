package agents

// AgentType identifies a specialized conversational agent.
type AgentType string

const (
	AgentSalesAssistant   AgentType = "sales_assistant"
	AgentTechnicalSupport AgentType = "technical_support"
	AgentProductExpert    AgentType = "product_expert"
	AgentGeneralAssistant AgentType = "general_assistant"
)

// String returns the string representation of the agent type.
func (t AgentType) String() string {
	return string(t)
}

// IsValid checks if the agent type is one of the supported agents.
func (t AgentType) IsValid() bool {
	switch t {
	case AgentSalesAssistant, AgentTechnicalSupport, AgentProductExpert, AgentGeneralAssistant:
		return true
	default:
		return false
	}
}

// AllAgentTypes returns every supported agent type.
func AllAgentTypes() []AgentType {
	return []AgentType{
		AgentSalesAssistant,
		AgentTechnicalSupport,
		AgentProductExpert,
		AgentGeneralAssistant,
	}
}
