package llm

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the process-wide defaults for every provider adapter: base
// URLs and default model names, overridable per participant via their
// encrypted ModelConfigEncrypted blob. Grounded on app.config.settings'
// per-provider *_API_KEY/*_BASE_URL/*_MODEL fields.
type Config struct {
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
	AnthropicModel  string `envconfig:"ANTHROPIC_MODEL" default:"claude-sonnet-4-20250514"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel  string `envconfig:"OPENAI_MODEL" default:"gpt-4-turbo-preview"`

	AzureOpenAIAPIKey     string `envconfig:"AZURE_OPENAI_API_KEY"`
	AzureOpenAIEndpoint   string `envconfig:"AZURE_OPENAI_ENDPOINT"`
	AzureOpenAIAPIVersion string `envconfig:"AZURE_OPENAI_API_VERSION" default:"2024-02-01"`
	AzureOpenAIDeployment string `envconfig:"AZURE_OPENAI_DEPLOYMENT"`

	DeepSeekAPIKey  string `envconfig:"DEEPSEEK_API_KEY"`
	DeepSeekBaseURL string `envconfig:"DEEPSEEK_BASE_URL" default:"https://api.deepseek.com/v1"`
	DeepSeekModel   string `envconfig:"DEEPSEEK_MODEL" default:"deepseek-chat"`

	QwenAPIKey  string `envconfig:"QWEN_API_KEY"`
	QwenBaseURL string `envconfig:"QWEN_BASE_URL" default:"https://dashscope.aliyuncs.com/compatible-mode/v1"`
	QwenModel   string `envconfig:"QWEN_MODEL" default:"qwen-max"`

	RequestTimeout time.Duration `envconfig:"LLM_REQUEST_TIMEOUT" default:"60s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("llm: error processing env config: %w", err))
	}
	return config
}
