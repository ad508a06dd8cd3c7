// Package llm provides the text completion backends.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/travel-concierge/pkg/logger"
)

const (
	ProviderMock   = "mock"
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// NewCompleter builds the completer selected by cfg.Provider.
func NewCompleter(ctx context.Context, cfg model.LLMConfig, classifier model.ClassifierModelConfig, generation model.GenerationModelConfig) (model.Completer, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case "", ProviderMock:
		logx.Warn().Msg("using mock completer; responses are canned")
		return NewMockCompleter(), nil
	case ProviderGemini:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("LLM_API_KEY is required for provider %q", provider)
		}
		cms, err := NewGeminiChatModels(ctx, ChatModelConfig{
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			ThinkingBudget: cfg.ThinkingBudget,
			Classifier:     classifier,
			Generation:     generation,
		})
		if err != nil {
			return nil, err
		}
		return NewChatCompleter(cms), nil
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("LLM_API_KEY is required for provider %q", provider)
		}
		return NewOpenAICompleter(cfg.APIKey, cfg.BaseURL, classifier, generation), nil
	}
	return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
}
