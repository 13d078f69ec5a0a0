package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"hermes/pkg/errors"
)

const geminiAPIURLFormat = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"

// Ensure GeminiProvider implements ChatProvider
var _ ChatProvider = (*GeminiProvider)(nil)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  geminiGenConfig `json:"generationConfig"`
}

type geminiGenConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// Chat sends a generateContent request to the Gemini API.
func (p *GeminiProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if p.apiKey == "" {
		return nil, errors.Wrap(errors.ErrProviderAuth, "gemini API key not configured")
	}

	// Wait for rate limiter
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return nil, &RateLimitError{
			Provider: ProviderNameGemini,
			Limit:    p.rateLimiter.Limit(),
			Err:      err,
		}
	}

	geminiReq := geminiRequest{
		GenerationConfig: geminiGenConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		},
	}
	if geminiReq.GenerationConfig.MaxOutputTokens == 0 {
		geminiReq.GenerationConfig.MaxOutputTokens = 1024
	}

	if req.SystemPrompt != "" {
		geminiReq.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: req.SystemPrompt}},
		}
	}

	// Gemini uses "model" instead of "assistant" and has no system role in
	// the contents array.
	for _, msg := range req.Messages {
		role := "user"
		if msg.Role == RoleAssistant {
			role = "model"
		}
		geminiReq.Contents = append(geminiReq.Contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: msg.Content}},
		})
	}

	body, err := json.Marshal(geminiReq)
	if err != nil {
		return nil, errors.Wrap(err, "marshal gemini request")
	}

	url := fmt.Sprintf(geminiAPIURLFormat, req.Model)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "create HTTP request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.apiKey)

	client := &http.Client{Timeout: p.timeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(errors.ErrProviderUnavailable, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read gemini response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, p.apiError(resp.StatusCode, respBody)
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(respBody, &geminiResp); err != nil {
		return nil, errors.Wrap(err, "unmarshal gemini response")
	}

	if len(geminiResp.Candidates) == 0 {
		return nil, errors.Wrap(errors.ErrExternal, "gemini returned no candidates")
	}

	candidate := geminiResp.Candidates[0]
	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		sb.WriteString(part.Text)
	}

	finishReason := FinishReasonStop
	switch candidate.FinishReason {
	case "MAX_TOKENS":
		finishReason = FinishReasonLength
	case "SAFETY", "RECITATION":
		finishReason = FinishReasonSafety
	}

	return &ChatResponse{
		Model:        req.Model,
		Text:         sb.String(),
		FinishReason: finishReason,
		Usage: Usage{
			PromptTokens:     geminiResp.UsageMetadata.PromptTokenCount,
			CompletionTokens: geminiResp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      geminiResp.UsageMetadata.TotalTokenCount,
		},
	}, nil
}

func (p *GeminiProvider) apiError(status int, body []byte) error {
	var errResp struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}

	sentinel := errors.ErrExternal
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		sentinel = errors.ErrProviderAuth
	case http.StatusTooManyRequests:
		sentinel = errors.ErrRateLimitExceeded
	case http.StatusInternalServerError, http.StatusServiceUnavailable:
		sentinel = errors.ErrProviderUnavailable
	}

	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return errors.Wrapf(sentinel, "gemini API error (%d): %s - %s",
			status, errResp.Error.Status, errResp.Error.Message)
	}
	return errors.Wrapf(sentinel, "gemini API error (%d): %s", status, string(body))
}
