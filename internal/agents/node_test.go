package agents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/internal/adapters/ai"
	"hermes/internal/adapters/config"
	"hermes/internal/domain/chat"
	"hermes/internal/domain/product"
	"hermes/pkg/errors"
)

// fakeProvider is a scriptable ChatProvider for tests.
type fakeProvider struct {
	name    string
	reply   string
	err     error
	calls   int
	lastReq ai.ChatRequest
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) GetModel(_ context.Context, model string) (ai.ModelInfo, error) {
	return ai.ModelInfo{
		Provider:        ai.ProviderName(f.name),
		Name:            model,
		InputCostPer1K:  0.0005,
		OutputCostPer1K: 0.0015,
	}, nil
}

func (f *fakeProvider) ListModels(ctx context.Context) ([]ai.ModelInfo, error) {
	info, _ := f.GetModel(ctx, ai.ModelGemini15Flash)
	return []ai.ModelInfo{info}, nil
}

func (f *fakeProvider) ModelForAgent(agentType string) string {
	switch agentType {
	case "technical_support":
		return ai.ModelGeminiPro
	case "product_expert":
		return ai.ModelGemini15Pro
	default:
		return ai.ModelGemini15Flash
	}
}

func (f *fakeProvider) Chat(_ context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &ai.ChatResponse{
		Model:        req.Model,
		Text:         f.reply,
		FinishReason: ai.FinishReasonStop,
		Usage:        ai.Usage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
	}, nil
}

var _ ai.ChatProvider = (*fakeProvider)(nil)

// fakeSearcher returns a fixed set of matches.
type fakeSearcher struct {
	matches []product.Match
	err     error
}

func (f *fakeSearcher) Search(context.Context, string, int, float64) ([]product.Match, error) {
	return f.matches, f.err
}

func testAIConfig() config.AIConfig {
	return config.AIConfig{
		DefaultProvider: "gemini",
		RequestTimeout:  5 * time.Second,
		RetryAttempts:   2,
		RetryBackoff:    time.Millisecond,
	}
}

func testSearchConfig() config.SearchConfig {
	return config.SearchConfig{
		Backend:        "qdrant",
		Limit:          5,
		ScoreThreshold: 0.3,
	}
}

func newTestNode(t *testing.T, agentType AgentType, provider *fakeProvider, searcher product.Searcher) *Node {
	t.Helper()

	registry := ai.NewProviderRegistry()
	require.NoError(t, registry.Register(provider))

	settings := NewSettings(provider)
	node, err := NewNode(agentType, settings, registry, searcher, newTestTracker(newMemStore()),
		testAIConfig(), testSearchConfig())
	require.NoError(t, err)
	return node
}

func sampleMatches() []product.Match {
	return []product.Match{
		{Score: 0.91, Product: product.Product{
			Category: product.CategoryIPhone, Name: "iPhone 15 Pro", Price: 999,
		}},
		{Score: 0.84, Product: product.Product{
			Category: product.CategoryIPhone, Name: "iPhone 15", Price: 799,
		}},
	}
}

func TestNodeProcessSuccess(t *testing.T) {
	provider := &fakeProvider{name: "gemini", reply: "El iPhone 15 Pro cuesta $999."}
	node := newTestNode(t, AgentSalesAssistant, provider, &fakeSearcher{matches: sampleMatches()})

	result, err := node.Process(context.Background(), ProcessRequest{
		Message:              "¿Cuánto cuesta el iPhone 15 Pro?",
		ChatID:               1,
		IncludeProductSearch: true,
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Contains(t, result.Response, "El iPhone 15 Pro cuesta $999.")
	assert.True(t, result.ContextUsed)
	assert.Len(t, result.Products, 2)
	assert.Equal(t, ai.ModelGemini15Flash, result.Model)
	assert.InDelta(t, 0.000125, result.Cost, 1e-9)
	assert.Equal(t, uint32(150), result.TotalTokens)

	// Catalog excerpt is prepended to the user turn.
	lastTurn := provider.lastReq.Messages[len(provider.lastReq.Messages)-1]
	assert.Contains(t, lastTurn.Content, "Productos relevantes encontrados:")
	assert.Contains(t, lastTurn.Content, "¿Cuánto cuesta el iPhone 15 Pro?")
}

func TestNodeRetriesTransientErrors(t *testing.T) {
	provider := &fakeProvider{name: "gemini", err: errors.ErrProviderUnavailable}
	node := newTestNode(t, AgentGeneralAssistant, provider, nil)

	result, err := node.Process(context.Background(), ProcessRequest{Message: "hola qué tal todo"})
	require.NoError(t, err)

	assert.Equal(t, 2, provider.calls)
	assert.False(t, result.Success)
	assert.Equal(t, nodeFallbackResponse, result.Response)
	assert.NotEmpty(t, result.ErrorMessage)
}

func TestNodeDoesNotRetryAuthErrors(t *testing.T) {
	provider := &fakeProvider{name: "gemini", err: errors.ErrProviderAuth}
	node := newTestNode(t, AgentGeneralAssistant, provider, nil)

	result, err := node.Process(context.Background(), ProcessRequest{Message: "hola qué tal todo"})
	require.NoError(t, err)

	assert.Equal(t, 1, provider.calls)
	assert.False(t, result.Success)
}

func TestNodeSearchFailureDegradesToNoContext(t *testing.T) {
	provider := &fakeProvider{name: "gemini", reply: "Claro, te ayudo."}
	node := newTestNode(t, AgentSalesAssistant, provider, &fakeSearcher{err: errors.ErrUnavailable})

	result, err := node.Process(context.Background(), ProcessRequest{
		Message:              "busco un iphone nuevo",
		IncludeProductSearch: true,
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.False(t, result.ContextUsed)
	assert.Empty(t, result.Products)
}

func TestNodeHistoryBecomesChatTurns(t *testing.T) {
	provider := &fakeProvider{name: "gemini", reply: "Sí, tiene 256 GB."}
	node := newTestNode(t, AgentProductExpert, provider, nil)

	history := []chat.Message{
		{Sender: chat.SenderUser, Body: "Háblame del iPad Pro"},
		{Sender: chat.SenderBot, Body: "El iPad Pro tiene chip M4."},
		{Sender: chat.SenderSystem, Body: "conversation flagged"},
	}

	_, err := node.Process(context.Background(), ProcessRequest{
		Message: "¿Y cuánto almacenamiento tiene?",
		History: history,
	})
	require.NoError(t, err)

	// System notices are dropped, the rest become role turns before the
	// current message.
	require.Len(t, provider.lastReq.Messages, 3)
	assert.Equal(t, ai.RoleUser, provider.lastReq.Messages[0].Role)
	assert.Equal(t, ai.RoleAssistant, provider.lastReq.Messages[1].Role)
	assert.Equal(t, "¿Y cuánto almacenamiento tiene?", provider.lastReq.Messages[2].Content)
}

func TestSalesEnrichmentAddsCallToAction(t *testing.T) {
	provider := &fakeProvider{name: "gemini", reply: "Te recomiendo el iPhone 15 Pro."}
	node := newTestNode(t, AgentSalesAssistant, provider, &fakeSearcher{matches: sampleMatches()})

	result, err := node.Process(context.Background(), ProcessRequest{
		Message:              "quiero comprar un iphone",
		IncludeProductSearch: true,
	})
	require.NoError(t, err)

	assert.Contains(t, result.Response, "¿Te gustaría conocer más detalles")
}

func TestSupportEnrichmentAddsHelpResources(t *testing.T) {
	provider := &fakeProvider{name: "gemini", reply: "Prueba reiniciar el equipo."}
	node := newTestNode(t, AgentTechnicalSupport, provider, nil)

	result, err := node.Process(context.Background(), ProcessRequest{Message: "mi mac no enciende"})
	require.NoError(t, err)

	require.Len(t, result.HelpResources, 4)
	assert.Contains(t, result.HelpResources[0], "800-APL-CARE")
}

func TestExpertEnrichmentOffersComparison(t *testing.T) {
	provider := &fakeProvider{name: "gemini", reply: "Ambos son excelentes."}
	node := newTestNode(t, AgentProductExpert, provider, &fakeSearcher{matches: sampleMatches()})

	result, err := node.Process(context.Background(), ProcessRequest{
		Message:              "diferencias entre iphone 15 y 15 pro",
		IncludeProductSearch: true,
	})
	require.NoError(t, err)

	assert.True(t, result.ComparisonAvailable)
	assert.Contains(t, result.Response, "comparación detallada")
}

func TestGeneralEnrichmentSuggestsSpecialists(t *testing.T) {
	provider := &fakeProvider{name: "gemini", reply: "Con gusto te ayudo."}
	node := newTestNode(t, AgentGeneralAssistant, provider, nil)

	result, err := node.Process(context.Background(), ProcessRequest{
		Message: "tengo un problema y quiero comprar al mejor precio",
	})
	require.NoError(t, err)

	require.Len(t, result.SpecialistSuggestions, 2)
	assert.Contains(t, result.SpecialistSuggestions[0], "Soporte Técnico")
	assert.Contains(t, result.SpecialistSuggestions[1], "Ventas")
}

func TestNewNodeRejectsUnknownAgentType(t *testing.T) {
	provider := &fakeProvider{name: "gemini"}
	registry := ai.NewProviderRegistry()
	require.NoError(t, registry.Register(provider))

	_, err := NewNode(AgentType("psychic"), NewSettings(provider), registry, nil, nil,
		testAIConfig(), testSearchConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnknownAgentType))
}
