package llm

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// openAICompatAdapter speaks the OpenAI chat-completions wire format,
// shared by OpenAI itself, DeepSeek and Qwen (both OpenAI-compatible per
// deepseek_client.py/qwen_client.py's own docstrings). Only the base URL
// and default model differ between the three.
type openAICompatAdapter struct {
	http         *resty.Client
	apiKey       string
	baseURL      string
	defaultModel string
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (a *openAICompatAdapter) invoke(ctx context.Context, prompt string, cfg requestConfig) (string, int, int, error) {
	model := cfg.Model
	if model == "" {
		model = a.defaultModel
	}

	var result chatCompletionResponse
	resp, err := a.http.R().
		SetContext(ctx).
		SetAuthToken(a.apiKey).
		SetBody(chatCompletionRequest{
			Model:       model,
			Messages:    []chatMessage{{Role: "user", Content: prompt}},
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		}).
		SetResult(&result).
		Post(a.baseURL + "/chat/completions")
	if err != nil {
		return "", 0, 0, fmt.Errorf("llm: request failed: %w", err)
	}
	if resp.IsError() {
		if result.Error != nil {
			return "", 0, 0, fmt.Errorf("llm: API error (%s): %s", result.Error.Type, result.Error.Message)
		}
		return "", 0, 0, fmt.Errorf("llm: HTTP %d: %s", resp.StatusCode(), resp.String())
	}
	if len(result.Choices) == 0 {
		return "", 0, 0, fmt.Errorf("llm: response had no choices")
	}

	return result.Choices[0].Message.Content, result.Usage.PromptTokens, result.Usage.CompletionTokens, nil
}
