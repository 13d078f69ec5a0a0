package routing

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectGreetingDirectResponse(t *testing.T) {
	detector := NewDetector()

	result := detector.DetectIntent("Hola, buenos días")

	assert.Equal(t, IntentGreeting, result.Intent)
	assert.Equal(t, ResponseDirect, result.ResponseType)
	assert.Greater(t, result.Confidence, 0.7)
	assert.Empty(t, result.SuggestedAgent)
	assert.Contains(t, result.DetectedKeywords, "hola")
	assert.Contains(t, result.DetectedKeywords, "buenos días")

	resp, ok := detector.DirectResponse(result.Intent)
	require.True(t, ok)
	assert.Contains(t, resp.Templates, resp.Pick(nil))
}

func TestDetectPriceQuestionRoutesToSales(t *testing.T) {
	detector := NewDetector()

	result := detector.DetectIntent("¿Cuánto cuesta el iPhone 15 Pro?")

	assert.Equal(t, IntentPriceQuestion, result.Intent)
	assert.Equal(t, ResponseAgent, result.ResponseType)
	assert.Equal(t, "sales_assistant", result.SuggestedAgent)
}

func TestDetectNoMatchFallsBackToUnknown(t *testing.T) {
	detector := NewDetector()

	tests := []string{
		"",
		"xyzzy plugh",
		"42",
	}
	for _, message := range tests {
		result := detector.DetectIntent(message)

		assert.Equal(t, IntentUnknown, result.Intent, "message %q", message)
		assert.Zero(t, result.Confidence)
		assert.Equal(t, ResponseAgent, result.ResponseType)
		assert.Equal(t, FallbackAgent, result.SuggestedAgent)
		assert.Empty(t, result.DetectedKeywords)
	}
}

func TestDetectComplaintEscalates(t *testing.T) {
	detector := NewDetector()

	result := detector.DetectIntent("Quiero poner una queja por el mal servicio, voy a devolver el pedido y pido reembolso")

	assert.Equal(t, IntentComplaint, result.Intent)
	assert.Equal(t, ResponseEscalate, result.ResponseType)
	assert.Greater(t, result.Confidence, 0.8)
}

func TestDetectTechnicalSupportIntent(t *testing.T) {
	detector := NewDetector()

	result := detector.DetectIntent("Mi MacBook no funciona, tengo un problema con la pantalla")

	assert.Equal(t, IntentTechnicalSupport, result.Intent)
	assert.Equal(t, ResponseAgent, result.ResponseType)
	assert.Equal(t, "technical_support", result.SuggestedAgent)
}

func TestDetectComparisonRoutesToExpert(t *testing.T) {
	detector := NewDetector()

	result := detector.DetectIntent("¿Cuál es la diferencia entre el iPhone 15 y el iPhone 15 Pro? Quiero comparar")

	assert.Equal(t, IntentComparison, result.Intent)
	assert.Equal(t, "product_expert", result.SuggestedAgent)
}

func TestTieBreakPrefersFirstDeclaredRule(t *testing.T) {
	// Two structurally identical rules matching the same message score
	// equally; declaration order decides.
	rules := []TriggerRule{
		{Intent: IntentProductInquiry, Keywords: []string{"alfa"}},
		{Intent: IntentPriceQuestion, Keywords: []string{"beta"}},
	}
	detector := NewDetectorWith(rules, nil, defaultAgentRouting())

	result := detector.DetectIntent("alfa beta")

	assert.Equal(t, IntentProductInquiry, result.Intent)
	assert.Equal(t, 1.0, result.Confidence)

	// Reversed declaration flips the winner.
	reversed := NewDetectorWith([]TriggerRule{rules[1], rules[0]}, nil, defaultAgentRouting())
	assert.Equal(t, IntentPriceQuestion, reversed.DetectIntent("alfa beta").Intent)
}

func TestBoostOnlyAppliesWhenRuleMatches(t *testing.T) {
	rules := []TriggerRule{
		{Intent: IntentPriceQuestion, Keywords: []string{"precio"}, ConfidenceBoost: 1.0},
	}
	detector := NewDetectorWith(rules, nil, defaultAgentRouting())

	// No hit at all: the boost alone must not produce a classification.
	assert.Equal(t, IntentUnknown, detector.DetectIntent("hola mundo").Intent)

	// With a hit the boost raises confidence: (1 + 1) / (1 + 1) = 1.
	result := detector.DetectIntent("precio")
	assert.Equal(t, IntentPriceQuestion, result.Intent)
	assert.Equal(t, 1.0, result.Confidence)
}

func TestDirectResponsePickIsDeterministicWithSeed(t *testing.T) {
	detector := NewDetector()
	resp, ok := detector.DirectResponse(IntentGreeting)
	require.True(t, ok)
	require.NotEmpty(t, resp.Templates)

	rng := rand.New(rand.NewSource(42))
	first := resp.Pick(rng)
	assert.Contains(t, resp.Templates, first)

	rng = rand.New(rand.NewSource(42))
	assert.Equal(t, first, resp.Pick(rng))
}

func TestDirectResponsesConfiguredForLowStakesIntents(t *testing.T) {
	detector := NewDetector()

	for _, intent := range []IntentType{IntentGreeting, IntentGoodbye, IntentGeneralInfo} {
		resp, ok := detector.DirectResponse(intent)
		require.True(t, ok, "expected direct response for %s", intent)
		assert.NotEmpty(t, resp.Templates)
	}

	_, ok := detector.DirectResponse(IntentComplaint)
	assert.False(t, ok)
}

func TestAgentForUnmappedIntentIsGeneralAssistant(t *testing.T) {
	detector := NewDetector()
	assert.Equal(t, FallbackAgent, detector.AgentFor(IntentGreeting))
	assert.Equal(t, FallbackAgent, detector.AgentFor(IntentUnknown))
	assert.Equal(t, "technical_support", detector.AgentFor(IntentComplaint))
}
