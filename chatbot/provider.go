package chatbot

import (
	"context"
	"fmt"

	"github.com/alt-coder/synthio/config"
	"github.com/alt-coder/synthio/llm"
	"github.com/alt-coder/synthio/llm/anthropic"
	"github.com/alt-coder/synthio/llm/gemini"
	"github.com/alt-coder/synthio/llm/ollama"
	"github.com/alt-coder/synthio/llm/openai"
)

// NewProvider builds the LLM client selected by the settings. API keys,
// endpoints, and transport tuning come from each provider's own
// environment variables; the settings only choose the provider and may
// override the model and temperature. An empty model keeps the
// provider's default.
func NewProvider(ctx context.Context, settings *config.Settings) (llm.LLMProvider, error) {
	switch settings.Provider {
	case config.ProviderOpenAI:
		cfg, err := openai.NewConfigFromEnv()
		if err != nil {
			return nil, err
		}
		if settings.Model != "" {
			cfg.Model = settings.Model
		}
		cfg.Temperature = settings.Temperature
		return openai.NewOpenAIClient(ctx, cfg)

	case config.ProviderAzureOpenAI:
		cfg, err := openai.NewAzureConfigFromEnv()
		if err != nil {
			return nil, err
		}
		if settings.Model != "" {
			cfg.Model = settings.Model
		}
		cfg.Temperature = settings.Temperature
		return openai.NewOpenAIClient(ctx, cfg)

	case config.ProviderAnthropic:
		cfg, err := anthropic.NewConfigFromEnv()
		if err != nil {
			return nil, err
		}
		if settings.Model != "" {
			cfg.Model = settings.Model
		}
		cfg.Temperature = settings.Temperature
		return anthropic.NewAnthropicClient(cfg)

	case config.ProviderOllama:
		cfg, err := ollama.NewConfigFromEnv()
		if err != nil {
			return nil, err
		}
		if settings.Model != "" {
			cfg.Model = settings.Model
		}
		cfg.Temperature = settings.Temperature
		return ollama.NewOllamaClient(cfg)

	case config.ProviderGemini:
		cfg, err := gemini.NewConfigFromEnv()
		if err != nil {
			return nil, err
		}
		if settings.Model != "" {
			cfg.Model = settings.Model
		}
		cfg.Temperature = settings.Temperature
		return gemini.NewGeminiClient(ctx, cfg)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}
