package llm

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// azureAdapter speaks the same chat-completions body as openAICompatAdapter
// but against Azure's deployment-scoped URL shape and api-key header,
// per azure_openai_client.py.
type azureAdapter struct {
	http       *resty.Client
	apiKey     string
	endpoint   string
	apiVersion string
	deployment string
}

func (a *azureAdapter) invoke(ctx context.Context, prompt string, cfg requestConfig) (string, int, int, error) {
	deployment := cfg.Model
	if deployment == "" {
		deployment = a.deployment
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s", a.endpoint, deployment, a.apiVersion)

	var result chatCompletionResponse
	resp, err := a.http.R().
		SetContext(ctx).
		SetHeader("api-key", a.apiKey).
		SetBody(chatCompletionRequest{
			Model:       deployment,
			Messages:    []chatMessage{{Role: "user", Content: prompt}},
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		}).
		SetResult(&result).
		Post(url)
	if err != nil {
		return "", 0, 0, fmt.Errorf("llm: azure request failed: %w", err)
	}
	if resp.IsError() {
		if result.Error != nil {
			return "", 0, 0, fmt.Errorf("llm: azure API error (%s): %s", result.Error.Type, result.Error.Message)
		}
		return "", 0, 0, fmt.Errorf("llm: azure HTTP %d: %s", resp.StatusCode(), resp.String())
	}
	if len(result.Choices) == 0 {
		return "", 0, 0, fmt.Errorf("llm: azure response had no choices")
	}

	return result.Choices[0].Message.Content, result.Usage.PromptTokens, result.Usage.CompletionTokens, nil
}
