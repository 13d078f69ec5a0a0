package ai

import (
	"context"
	"strings"
	"testing"
	"time"
)

func testTimeout() time.Duration { return 30 * time.Second }

func TestProvidersExposeModels(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name     string
		provider ChatProvider
	}{
		{name: "gemini", provider: NewGeminiProvider("key", testTimeout(), nil)},
		{name: "openai", provider: NewOpenAIProvider("key", testTimeout(), nil)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			models, err := tt.provider.ListModels(ctx)
			if err != nil {
				t.Fatalf("list models failed: %v", err)
			}

			if len(models) == 0 {
				t.Fatalf("expected models for %s", tt.name)
			}

			// Case-insensitive lookup
			info, err := tt.provider.GetModel(ctx, strings.ToUpper(models[0].Name))
			if err != nil {
				t.Fatalf("get model failed: %v", err)
			}

			if info.Name != models[0].Name {
				t.Fatalf("expected %s, got %s", models[0].Name, info.Name)
			}

			if info.InputCostPer1K <= 0 || info.OutputCostPer1K <= 0 {
				t.Fatalf("expected pricing for %s", info.Name)
			}

			if _, err := tt.provider.GetModel(ctx, "missing-model"); err == nil {
				t.Fatalf("expected error for missing model on %s", tt.name)
			}
		})
	}
}

func TestModelForAgentMapping(t *testing.T) {
	ctx := context.Background()
	gemini := NewGeminiProvider("key", testTimeout(), nil)
	openai := NewOpenAIProvider("key", testTimeout(), nil)

	tests := []struct {
		provider  ChatProvider
		agentType string
		want      string
	}{
		{gemini, "sales_assistant", ModelGemini15Flash},
		{gemini, "technical_support", ModelGeminiPro},
		{gemini, "product_expert", ModelGemini15Pro},
		{gemini, "general_assistant", ModelGemini15Flash},
		{openai, "sales_assistant", ModelGPT35Turbo},
		{openai, "technical_support", ModelGPT4},
		{openai, "product_expert", ModelGPT4Turbo},
		{openai, "general_assistant", ModelGPT35Turbo},
	}

	for _, tt := range tests {
		got := tt.provider.ModelForAgent(tt.agentType)
		if got != tt.want {
			t.Errorf("%s/%s: expected %s, got %s", tt.provider.Name(), tt.agentType, tt.want, got)
		}

		// Every assigned model must resolve to priced metadata.
		if _, err := tt.provider.GetModel(ctx, got); err != nil {
			t.Errorf("%s/%s: assigned model %s has no metadata: %v", tt.provider.Name(), tt.agentType, got, err)
		}
	}
}

func TestChatRequiresAPIKey(t *testing.T) {
	ctx := context.Background()
	req := ChatRequest{Model: ModelGeminiPro, Messages: []Message{{Role: RoleUser, Content: "hola"}}}

	if _, err := NewGeminiProvider("", testTimeout(), nil).Chat(ctx, req); err == nil {
		t.Fatal("expected error for missing gemini key")
	}
	if _, err := NewOpenAIProvider("", testTimeout(), nil).Chat(ctx, req); err == nil {
		t.Fatal("expected error for missing openai key")
	}
}
