package routing

import "strings"

// Confidence thresholds for bypassing agents.
const (
	directResponseThreshold = 0.7
	escalationThreshold     = 0.8
)

// FallbackAgent handles intents with no dedicated agent.
const FallbackAgent = "general_assistant"

// Detector classifies incoming messages against an ordered trigger rule set
// and decides whether a canned reply, an agent, or a human should answer.
// Safe for concurrent use: all state is immutable after construction.
type Detector struct {
	rules           []TriggerRule
	directResponses map[IntentType]DirectResponse
	agentRouting    map[IntentType]string
}

// NewDetector builds a detector with the default storefront rule set.
func NewDetector() *Detector {
	return NewDetectorWith(defaultTriggerRules(), defaultDirectResponses(), defaultAgentRouting())
}

// NewDetectorWith builds a detector from an explicit configuration.
func NewDetectorWith(rules []TriggerRule, responses map[IntentType]DirectResponse, agentRouting map[IntentType]string) *Detector {
	return &Detector{
		rules:           rules,
		directResponses: responses,
		agentRouting:    agentRouting,
	}
}

// DetectIntent scores the message against every trigger rule and returns the
// winning intent. Ties go to the earlier-declared rule. A message matching
// nothing comes back as unknown with zero confidence, routed to the fallback
// agent.
func (d *Detector) DetectIntent(message string) IntentResult {
	lower := strings.ToLower(message)

	bestIntent := IntentUnknown
	bestScore := 0.0
	var detected []string
	seen := make(map[string]struct{})

	for _, rule := range d.rules {
		score := 0.0
		var ruleKeywords []string

		for _, keyword := range rule.Keywords {
			if strings.Contains(lower, strings.ToLower(keyword)) {
				score += keywordWeight
				ruleKeywords = append(ruleKeywords, keyword)
			}
		}

		for _, pattern := range rule.Patterns {
			if pattern.MatchString(lower) {
				score += patternWeight
			}
		}

		if score <= 0 {
			continue
		}

		// Boost only rules that matched, otherwise a boosted rule would
		// score on every message and unknown could never win.
		score += rule.ConfidenceBoost

		if max := rule.maxScore(); max > 0 {
			score /= max
		}

		// Strictly-greater keeps the first-declared rule on ties.
		if score > bestScore {
			bestScore = score
			bestIntent = rule.Intent
		}

		for _, keyword := range ruleKeywords {
			if _, ok := seen[keyword]; !ok {
				seen[keyword] = struct{}{}
				detected = append(detected, keyword)
			}
		}
	}

	result := IntentResult{
		Intent:           bestIntent,
		Confidence:       bestScore,
		DetectedKeywords: detected,
		ResponseType:     ResponseAgent,
		SuggestedAgent:   d.agentFor(bestIntent),
	}

	if _, ok := d.directResponses[bestIntent]; ok && bestScore > directResponseThreshold {
		result.ResponseType = ResponseDirect
		result.SuggestedAgent = ""
	}

	if bestIntent == IntentComplaint && bestScore > escalationThreshold {
		result.ResponseType = ResponseEscalate
	}

	return result
}

// DirectResponse returns the canned reply configured for an intent, if any.
func (d *Detector) DirectResponse(intent IntentType) (DirectResponse, bool) {
	resp, ok := d.directResponses[intent]
	return resp, ok
}

// AgentFor returns the agent type that handles an intent.
func (d *Detector) AgentFor(intent IntentType) string {
	return d.agentFor(intent)
}

func (d *Detector) agentFor(intent IntentType) string {
	if agent, ok := d.agentRouting[intent]; ok {
		return agent
	}
	return FallbackAgent
}
