package llm

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// anthropicAdapter speaks the Messages API wire format directly, per
// anthropic_client.py, since this repo carries no Anthropic SDK.
type anthropicAdapter struct {
	http         *resty.Client
	apiKey       string
	defaultModel string
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *apiError `json:"error,omitempty"`
}

const anthropicAPIVersion = "2023-06-01"

func (a *anthropicAdapter) invoke(ctx context.Context, prompt string, cfg requestConfig) (string, int, int, error) {
	model := cfg.Model
	if model == "" {
		model = a.defaultModel
	}

	var result anthropicResponse
	resp, err := a.http.R().
		SetContext(ctx).
		SetHeader("x-api-key", a.apiKey).
		SetHeader("anthropic-version", anthropicAPIVersion).
		SetBody(anthropicRequest{
			Model:       model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
		}).
		SetResult(&result).
		Post("https://api.anthropic.com/v1/messages")
	if err != nil {
		return "", 0, 0, fmt.Errorf("llm: anthropic request failed: %w", err)
	}
	if resp.IsError() {
		if result.Error != nil {
			return "", 0, 0, fmt.Errorf("llm: anthropic API error: %s", result.Error.Message)
		}
		return "", 0, 0, fmt.Errorf("llm: anthropic HTTP %d: %s", resp.StatusCode(), resp.String())
	}
	if len(result.Content) == 0 {
		return "", 0, 0, fmt.Errorf("llm: anthropic response had no content")
	}

	return result.Content[0].Text, result.Usage.InputTokens, result.Usage.OutputTokens, nil
}
