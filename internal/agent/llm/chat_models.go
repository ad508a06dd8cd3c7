package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/travel-concierge/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	APIKey         string
	BaseURL        string
	ThinkingBudget int32
	Classifier     model.ClassifierModelConfig
	Generation     model.GenerationModelConfig
}

// ChatModels holds the classifier and generation chat models
type ChatModels struct {
	Classifier          einomodel.BaseChatModel
	Generation          einomodel.BaseChatModel
	ClassifierModelName string
	GenerationModelName string
}

// NewGeminiChatModels creates both chat models on one Gemini client
func NewGeminiChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	var thinking *genai.ThinkingConfig
	if config.ThinkingBudget > 0 {
		thinking = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr(config.ThinkingBudget)}
	}

	classifier, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.Classifier.Model,
		Temperature: &config.Classifier.Temperature,
		MaxTokens:   &config.Classifier.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating classifier model")
		return nil, fmt.Errorf("error creating classifier model: %w", err)
	}

	generation, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:         client,
		Model:          config.Generation.Model,
		Temperature:    &config.Generation.Temperature,
		MaxTokens:      &config.Generation.MaxTokens,
		ThinkingConfig: thinking,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating generation model")
		return nil, fmt.Errorf("error creating generation model: %w", err)
	}

	return &ChatModels{
		Classifier:          classifier,
		Generation:          generation,
		ClassifierModelName: config.Classifier.Model,
		GenerationModelName: config.Generation.Model,
	}, nil
}
