// Package llm invokes a participant's configured language-model provider
// and returns its reply along with token counts and a cost estimate,
// satisfying decision.Invoker. Each provider adapter is grounded on the
// corresponding app/llm/*_client.py file, ported from an SDK call to a
// plain resty request since this repo carries no per-provider Go SDK.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"agentarena/src/decision"
)

const (
	ProviderAnthropic   = "anthropic"
	ProviderOpenAI      = "openai"
	ProviderAzureOpenAI = "azure_openai"
	ProviderDeepSeek    = "deepseek"
	ProviderQwen        = "qwen"
)

// requestConfig is the per-invocation override a participant's
// ModelConfigEncrypted blob carries, mirroring participant.llm_config's
// free-form dict in the original (model/max_tokens/temperature overrides).
type requestConfig struct {
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

func parseRequestConfig(blob string) requestConfig {
	cfg := requestConfig{MaxTokens: 4096, Temperature: 0.7}
	if blob == "" {
		return cfg
	}
	_ = json.Unmarshal([]byte(blob), &cfg)
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	return cfg
}

// Registry dispatches Invoke calls to the adapter matching the requested
// provider, implementing decision.Invoker without decision importing any
// provider-specific package.
type Registry struct {
	adapters map[string]adapter
}

// NewRegistry builds the standard five-provider registry from Config.
func NewRegistry(cfg Config) *Registry {
	httpClient := newHTTPClient()
	return &Registry{
		adapters: map[string]adapter{
			ProviderAnthropic:   &anthropicAdapter{http: httpClient, apiKey: cfg.AnthropicAPIKey, defaultModel: cfg.AnthropicModel},
			ProviderOpenAI:      &openAICompatAdapter{http: httpClient, apiKey: cfg.OpenAIAPIKey, baseURL: "https://api.openai.com/v1", defaultModel: cfg.OpenAIModel},
			ProviderAzureOpenAI: &azureAdapter{http: httpClient, apiKey: cfg.AzureOpenAIAPIKey, endpoint: cfg.AzureOpenAIEndpoint, apiVersion: cfg.AzureOpenAIAPIVersion, deployment: cfg.AzureOpenAIDeployment},
			ProviderDeepSeek:    &openAICompatAdapter{http: httpClient, apiKey: cfg.DeepSeekAPIKey, baseURL: cfg.DeepSeekBaseURL, defaultModel: cfg.DeepSeekModel},
			ProviderQwen:        &openAICompatAdapter{http: httpClient, apiKey: cfg.QwenAPIKey, baseURL: cfg.QwenBaseURL, defaultModel: cfg.QwenModel},
		},
	}
}

// Invoke satisfies decision.Invoker.
func (r *Registry) Invoke(ctx context.Context, provider, modelID, configBlob, prompt string, deadline time.Time) (decision.InvokeResponse, error) {
	a, ok := r.adapters[provider]
	if !ok {
		return decision.InvokeResponse{}, fmt.Errorf("llm: unsupported provider %q", provider)
	}

	cfg := parseRequestConfig(configBlob)
	if modelID != "" {
		cfg.Model = modelID
	}

	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	text, promptTokens, responseTokens, err := a.invoke(ctx, prompt, cfg)
	if err != nil {
		return decision.InvokeResponse{}, err
	}

	cost := EstimateCost(provider, cfg.Model, promptTokens, responseTokens)

	return decision.InvokeResponse{
		Text:           text,
		PromptTokens:   &promptTokens,
		ResponseTokens: &responseTokens,
		CostEstimate:   cost,
	}, nil
}

// adapter is the narrow per-provider capability; each returns raw text
// plus token counts, leaving cost estimation and response-object assembly
// to the registry.
type adapter interface {
	invoke(ctx context.Context, prompt string, cfg requestConfig) (text string, promptTokens, responseTokens int, err error)
}

func newHTTPClient() *resty.Client {
	return resty.New().
		SetTimeout(90 * time.Second).
		SetRetryCount(1).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(4 * time.Second).
		AddRetryCondition(isRetryableResp)
}

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	code := r.StatusCode()
	return code == 429 || (code >= 500 && code <= 599)
}
