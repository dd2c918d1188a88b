package llm

import (
	"context"
	"strings"

	"github.com/ppiankov/covenant/internal/model"
	"github.com/rotisserie/eris"
)

// NewProvider creates the provider named in config
func NewProvider(ctx context.Context, config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "gemini", "google":
		return NewGeminiProvider(ctx, config)

	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "":
		return nil, eris.New("no LLM provider configured (set llm.provider)")

	default:
		return nil, eris.Errorf("unknown LLM provider: %s (supported: gemini, openai, anthropic, ollama)", config.Provider)
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(llmConfig model.LLMConfig, search model.SearchConfig) Config {
	return Config{
		Provider:   llmConfig.Provider,
		Model:      llmConfig.Model,
		APIKey:     llmConfig.APIKey,
		BaseURL:    llmConfig.BaseURL,
		Timeout:    llmConfig.Timeout,
		MaxTokens:  llmConfig.MaxTokens,
		HTTPProxy:  search.HTTPProxy,
		HTTPSProxy: search.HTTPSProxy,
	}
}
