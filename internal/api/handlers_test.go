package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/internal/adapters/ai"
	"hermes/internal/adapters/config"
	"hermes/internal/agents"
	"hermes/internal/routing"
)

// scriptedProvider is a canned ChatProvider for handler tests.
type scriptedProvider struct {
	name  string
	reply string
	calls int
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) GetModel(_ context.Context, model string) (ai.ModelInfo, error) {
	return ai.ModelInfo{
		Provider:        ai.ProviderName(p.name),
		Name:            model,
		InputCostPer1K:  0.0005,
		OutputCostPer1K: 0.0015,
	}, nil
}

func (p *scriptedProvider) ListModels(ctx context.Context) ([]ai.ModelInfo, error) {
	info, _ := p.GetModel(ctx, ai.ModelGemini15Flash)
	return []ai.ModelInfo{info}, nil
}

func (p *scriptedProvider) ModelForAgent(string) string { return ai.ModelGemini15Flash }

func (p *scriptedProvider) Chat(_ context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	p.calls++
	return &ai.ChatResponse{
		Model:        req.Model,
		Text:         p.reply,
		FinishReason: ai.FinishReasonStop,
		Usage:        ai.Usage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
	}, nil
}

var _ ai.ChatProvider = (*scriptedProvider)(nil)

func newTestHandler(t *testing.T, provider *scriptedProvider) *AssistantHandler {
	t.Helper()

	registry := ai.NewProviderRegistry()
	require.NoError(t, registry.Register(provider))

	settings := agents.NewSettings(provider)
	nodes := agents.NewNodeRegistry(settings, registry, nil, nil,
		config.AIConfig{RequestTimeout: 5 * time.Second, RetryAttempts: 1},
		config.SearchConfig{Limit: 5, ScoreThreshold: 0.3})

	orch, err := agents.NewOrchestrator(agents.OrchestratorDeps{
		Detector: routing.NewDetector(),
		Nodes:    nodes,
		Settings: settings,
		Deadline: 5 * time.Second,
	})
	require.NoError(t, err)

	return NewAssistantHandler(orch, settings, registry, nil)
}

func TestHandleMessageDirectResponse(t *testing.T) {
	provider := &scriptedProvider{name: "gemini"}
	handler := newTestHandler(t, provider)

	body := `{"message":"Hola, buenos días","bot_type":"whatsapp_bot","chat_id":1,"user_id":7,"save_to_chat":false}`
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.HandleMessage(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp agents.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "greeting", resp.Intent)
	assert.Equal(t, "direct_response", resp.ResponseType)
	assert.Zero(t, provider.calls)
}

func TestHandleMessageAgentPath(t *testing.T) {
	provider := &scriptedProvider{name: "gemini", reply: "El iPhone 15 Pro cuesta $999."}
	handler := newTestHandler(t, provider)

	body := `{"message":"¿Cuánto cuesta el iPhone 15 Pro?","bot_type":"web_chat_bot","chat_id":2,"save_to_chat":false}`
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.HandleMessage(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp agents.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "sales_assistant", resp.AgentUsed)
	assert.Equal(t, 1, provider.calls)
}

func TestHandleMessageRejectsBadInput(t *testing.T) {
	handler := newTestHandler(t, &scriptedProvider{name: "gemini"})

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"message":`},
		{"missing message", `{"bot_type":"whatsapp_bot"}`},
		{"invalid bot type", `{"message":"hola","bot_type":"carrier_pigeon"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()

			handler.HandleMessage(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandleMessageRejectsGet(t *testing.T) {
	handler := newTestHandler(t, &scriptedProvider{name: "gemini"})

	req := httptest.NewRequest(http.MethodGet, "/v1/messages", nil)
	rec := httptest.NewRecorder()

	handler.HandleMessage(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleSwitchProviderUnknown(t *testing.T) {
	handler := newTestHandler(t, &scriptedProvider{name: "gemini"})

	req := httptest.NewRequest(http.MethodPost, "/v1/providers/switch",
		strings.NewReader(`{"provider":"anthropic"}`))
	rec := httptest.NewRecorder()

	handler.HandleSwitchProvider(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleSwitchProviderOK(t *testing.T) {
	provider := &scriptedProvider{name: "gemini"}
	handler := newTestHandler(t, provider)

	openai := &scriptedProvider{name: "openai"}
	require.NoError(t, handler.providers.Register(openai))

	req := httptest.NewRequest(http.MethodPost, "/v1/providers/switch",
		strings.NewReader(`{"provider":"openai"}`))
	rec := httptest.NewRecorder()

	handler.HandleSwitchProvider(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "openai", resp["provider"])
	assert.Equal(t, "openai", handler.settings.Provider())
}

func TestHandleCostEndpointsWithoutTracker(t *testing.T) {
	handler := newTestHandler(t, &scriptedProvider{name: "gemini"})

	for _, path := range []string{"/v1/costs/summary", "/v1/costs/limits"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()

		if path == "/v1/costs/summary" {
			handler.HandleCostSummary(rec, req)
		} else {
			handler.HandleCostLimits(rec, req)
		}

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestHandleConversationSummaryRequiresChatID(t *testing.T) {
	handler := newTestHandler(t, &scriptedProvider{name: "gemini"})

	req := httptest.NewRequest(http.MethodGet, "/v1/conversations/summary?chat_id=abc", nil)
	rec := httptest.NewRecorder()

	handler.HandleConversationSummary(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSystemMetrics(t *testing.T) {
	handler := newTestHandler(t, &scriptedProvider{name: "gemini"})

	req := httptest.NewRequest(http.MethodGet, "/v1/system/metrics", nil)
	rec := httptest.NewRecorder()

	handler.HandleSystemMetrics(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var metrics map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &metrics))
	assert.Equal(t, "gemini", metrics["ai_provider"])
	agentsInfo, ok := metrics["agent_status"].(map[string]interface{})
	require.True(t, ok)
	assert.Len(t, agentsInfo, 4)
}