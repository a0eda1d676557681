package llm

import (
	"context"
	"fmt"

	"github.com/Swuzz123/Coffee-Assistant/internal/config"
)

// NewFromConfig builds the configured provider wrapped with the call timeout
// and the rate limiter.
func NewFromConfig(ctx context.Context, cfg *config.Config) (Provider, error) {
	opts := LangChainOptions{MaxTokens: cfg.LLMMaxTokens, Temperature: cfg.LLMTemperature}

	var (
		p   Provider
		err error
	)
	switch cfg.LLMProvider {
	case config.ProviderAnthropic:
		p, err = NewAnthropicProvider(cfg.AnthropicAPIKey, AnthropicOptions{
			Model:       cfg.LLMModel,
			MaxTokens:   cfg.LLMMaxTokens,
			Temperature: cfg.LLMTemperature,
			Timeout:     cfg.LLMTimeout,
		})
	case config.ProviderOpenAI:
		p, err = NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.LLMModel, opts)
	case config.ProviderOllama:
		p, err = NewOllamaProvider(cfg.OllamaURL, cfg.LLMModel, opts)
	case config.ProviderGoogleAI:
		p, err = NewGoogleAIProvider(ctx, cfg.GoogleAPIKey, cfg.LLMModel, opts)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
	if err != nil {
		return nil, err
	}

	p = WithTimeout(p, cfg.LLMTimeout)
	return RateLimited(p, cfg.LLMRateLimit, cfg.LLMRateBurst), nil
}
