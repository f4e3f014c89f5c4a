package llm

import (
	"context"
	"fmt"

	"github.com/satriahrh/persona-chat/config"
	"github.com/satriahrh/persona-chat/domain"
)

// New builds the completer selected by cfg.Provider.
func New(ctx context.Context, cfg config.LLMConfig) (domain.Completer, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		return NewOpenAIClient(OpenAIConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Timeout: cfg.Timeout,
		})
	case config.ProviderGemini:
		return NewGeminiClient(ctx, GeminiConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Timeout: cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
