package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"hermes/pkg/errors"
)

const openaiAPIURL = "https://api.openai.com/v1/chat/completions"

// Ensure OpenAIProvider implements ChatProvider
var _ ChatProvider = (*OpenAIProvider)(nil)

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int           `json:"index"`
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Chat sends a chat completion request to OpenAI API.
func (p *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if p.apiKey == "" {
		return nil, errors.Wrap(errors.ErrProviderAuth, "openai API key not configured")
	}

	// Wait for rate limiter
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return nil, &RateLimitError{
			Provider: ProviderNameOpenAI,
			Limit:    p.rateLimiter.Limit(),
			Err:      err,
		}
	}

	openAIReq := openAIRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if openAIReq.MaxTokens == 0 {
		openAIReq.MaxTokens = 1024
	}

	// System prompt rides as the first message in OpenAI's format.
	if req.SystemPrompt != "" {
		openAIReq.Messages = append(openAIReq.Messages, openAIMessage{
			Role:    string(RoleSystem),
			Content: req.SystemPrompt,
		})
	}
	for _, msg := range req.Messages {
		openAIReq.Messages = append(openAIReq.Messages, openAIMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	body, err := json.Marshal(openAIReq)
	if err != nil {
		return nil, errors.Wrap(err, "marshal openai request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", openaiAPIURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "create HTTP request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	client := &http.Client{Timeout: p.timeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(errors.ErrProviderUnavailable, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read openai response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, p.apiError(resp.StatusCode, respBody)
	}

	var openAIResp openAIResponse
	if err := json.Unmarshal(respBody, &openAIResp); err != nil {
		return nil, errors.Wrap(err, "unmarshal openai response")
	}

	if len(openAIResp.Choices) == 0 {
		return nil, errors.Wrap(errors.ErrExternal, "openai returned no choices")
	}

	choice := openAIResp.Choices[0]
	finishReason := FinishReasonStop
	switch choice.FinishReason {
	case "length":
		finishReason = FinishReasonLength
	case "content_filter":
		finishReason = FinishReasonSafety
	}

	return &ChatResponse{
		ID:           openAIResp.ID,
		Model:        openAIResp.Model,
		Text:         choice.Message.Content,
		FinishReason: finishReason,
		Usage: Usage{
			PromptTokens:     openAIResp.Usage.PromptTokens,
			CompletionTokens: openAIResp.Usage.CompletionTokens,
			TotalTokens:      openAIResp.Usage.TotalTokens,
		},
	}, nil
}

func (p *OpenAIProvider) apiError(status int, body []byte) error {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}

	sentinel := errors.ErrExternal
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		sentinel = errors.ErrProviderAuth
	case http.StatusTooManyRequests:
		sentinel = errors.ErrRateLimitExceeded
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		sentinel = errors.ErrProviderUnavailable
	}

	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return errors.Wrapf(sentinel, "openai API error (%d): %s - %s",
			status, errResp.Error.Type, errResp.Error.Message)
	}
	return errors.Wrapf(sentinel, "openai API error (%d): %s", status, string(body))
}
